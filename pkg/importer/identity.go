package importer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/crystal-mush/pennport/pkg/events"
	"github.com/crystal-mush/pennport/pkg/gamedb"
)

var emailPattern = regexp.MustCompile(`[^\s@<>()\[\]]+@[^\s@<>()\[\]]+\.[^\s@<>()\[\]]+`)

var emptyBrackets = strings.NewReplacer("<>", "", "()", "", "[]", "")

// maxPlaceholderSuffix bounds the search for a free placeholder name.
const maxPlaceholderSuffix = 1000

// splitEmail pulls the first email-like token out of a legacy account name.
func splitEmail(raw string) (name, email string) {
	loc := emailPattern.FindStringIndex(raw)
	if loc == nil {
		return strings.TrimSpace(raw), ""
	}
	email = raw[loc[0]:loc[1]]
	rest := emptyBrackets.Replace(raw[:loc[0]] + raw[loc[1]:])
	return strings.Join(strings.Fields(rest), " "), email
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "yes", "true", "on":
		return true
	}
	return false
}

// identity creates one account per account root, then the fallback account.
func (p *Pipeline) identity(ctx context.Context, res *Result) error {
	used := make(map[string]bool)

	for _, id := range p.db.SortedIDs() {
		root := p.db.Objects[id]
		if !p.classifier.IsAccountRoot(root) {
			continue
		}

		name, email := splitEmail(root.Name)
		name, err := p.accountName(ctx, id, name, used)
		if err != nil {
			return err
		}
		chars := p.characters(root)
		spec := AccountSpec{
			Name:       name,
			Email:      email,
			AdminLevel: p.adminLevel(chars),
			LegacyID:   id,
		}

		aid, err := p.createAccount(ctx, spec)
		if err != nil {
			return err
		}
		res.Accounts++
		res.State.AccountsByLegacyOwner[id] = aid
		for _, ch := range chars {
			res.State.AccountsByLegacyOwner[ch.ID] = aid
		}
	}

	name := p.conf.UnassignedName
	if !p.claimName(ctx, gamedb.Nothing, name, used) {
		var err error
		name, err = p.placeholder(ctx, gamedb.Nothing, p.conf.PlaceholderPrefix+"unassigned", used)
		if err != nil {
			return err
		}
	}
	aid, err := p.createAccount(ctx, AccountSpec{Name: name, LegacyID: gamedb.Nothing})
	if err != nil {
		return err
	}
	res.Accounts++
	res.State.Unassigned = aid
	return nil
}

func (p *Pipeline) createAccount(ctx context.Context, spec AccountSpec) (uuid.UUID, error) {
	aid, err := p.store.CreateAccount(ctx, spec)
	if err != nil {
		return uuid.Nil, storeErr(PhaseIdentity, spec.LegacyID, err)
	}
	if p.ledger != nil {
		if err := p.ledger.RecordAccount(ctx, spec.LegacyID, aid, spec.Name); err != nil {
			return uuid.Nil, phaseErr(PhaseIdentity, spec.LegacyID, ErrExternalStore, fmt.Errorf("ledger: %w", err))
		}
	}

	p.metrics.accountCreated()
	p.log.WithFields(logrus.Fields{
		"legacy": spec.LegacyID,
		"id":     aid,
		"admin":  spec.AdminLevel,
	}).Debugf("import: account %q", spec.Name)
	p.bus.Emit(events.Event{
		Type:   events.EvAccount,
		Phase:  string(PhaseIdentity),
		Legacy: spec.LegacyID,
		ID:     aid,
		Text:   spec.Name,
		Data:   map[string]any{"admin_level": spec.AdminLevel, "email": spec.Email},
	})
	return aid, nil
}

// accountName returns name if it is usable, else a free placeholder for id.
// Names are unique case-insensitively within one run.
func (p *Pipeline) accountName(ctx context.Context, id gamedb.DBRef, name string, used map[string]bool) (string, error) {
	if p.claimName(ctx, id, name, used) {
		return name, nil
	}
	return p.placeholder(ctx, id, fmt.Sprintf("%s%d", p.conf.PlaceholderPrefix, int(id)), used)
}

// claimName marks name used if no earlier account took it and the store
// accepts it.
func (p *Pipeline) claimName(ctx context.Context, id gamedb.DBRef, name string, used map[string]bool) bool {
	key := strings.ToLower(name)
	if name == "" || used[key] {
		return false
	}
	if ok, reason := p.store.ValidAccountName(ctx, name); !ok {
		p.log.WithField("legacy", id).Debugf("import: account name %q rejected: %s", name, reason)
		return false
	}
	used[key] = true
	return true
}

// placeholder claims base, or the first free of base_1, base_2, ...
func (p *Pipeline) placeholder(ctx context.Context, id gamedb.DBRef, base string, used map[string]bool) (string, error) {
	for n := 0; n <= maxPlaceholderSuffix; n++ {
		name := base
		if n > 0 {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		if p.claimName(ctx, id, name, used) {
			return name, nil
		}
	}
	return "", phaseErr(PhaseIdentity, id, ErrExternalStore,
		fmt.Errorf("no free account name for %q after %d attempts", base, maxPlaceholderSuffix))
}

// characters returns the player objects parented to an account root.
func (p *Pipeline) characters(root *gamedb.Object) []*gamedb.Object {
	var out []*gamedb.Object
	for _, ch := range p.db.Children(root.ID) {
		if ch.Type == gamedb.TypePlayer {
			out = append(out, ch)
		}
	}
	return out
}

// adminLevel is the highest tier any of the characters earns.
func (p *Pipeline) adminLevel(chars []*gamedb.Object) int {
	level := 0
	for _, ch := range chars {
		if ch.HasFlag("WIZARD") {
			level = max(level, p.conf.WizardLevel)
		}
		if ch.HasFlag("ROYALTY") {
			level = max(level, p.conf.RoyaltyLevel)
		}
		if truthy(ch.Value(p.conf.AdminAttribute, false)) {
			level = max(level, p.conf.AdminAttributeLevel)
		}
	}
	return level
}
