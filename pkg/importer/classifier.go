package importer

import (
	"github.com/crystal-mush/pennport/pkg/config"
	"github.com/crystal-mush/pennport/pkg/gamedb"
)

// Classifier decides which legacy objects are accounts or groups rather
// than world objects.
type Classifier interface {
	IsAccountRoot(obj *gamedb.Object) bool
	IsGroup(obj *gamedb.Object) bool
}

// ParentClassifier treats the children of two container objects as account
// roots and groups. Nothing disables a container.
type ParentClassifier struct {
	Accounts gamedb.DBRef
	Groups   gamedb.DBRef
}

func (c ParentClassifier) IsAccountRoot(obj *gamedb.Object) bool {
	return c.Accounts != gamedb.Nothing && obj.Parent == c.Accounts && obj.ID != c.Accounts
}

func (c ParentClassifier) IsGroup(obj *gamedb.Object) bool {
	return c.Groups != gamedb.Nothing && obj.Parent == c.Groups && obj.ID != c.Groups
}

// CoreCodeClassifier locates the core code parent object by name and reads
// the account and group containers from its attributes. It reports false
// if the core code parent does not exist, in which case the returned
// classifier matches nothing.
func CoreCodeClassifier(db *gamedb.Database, conf *config.Config) (ParentClassifier, bool) {
	c := ParentClassifier{Accounts: gamedb.Nothing, Groups: gamedb.Nothing}
	ccp := db.MatchName(conf.CoreCodeParent)
	if ccp == nil {
		return c, false
	}
	if obj := db.FindObject(ccp.Value(conf.AccountsKey, true)); obj != nil {
		c.Accounts = obj.ID
	}
	if obj := db.FindObject(ccp.Value(conf.GroupsKey, true)); obj != nil {
		c.Groups = obj.ID
	}
	return c, true
}
