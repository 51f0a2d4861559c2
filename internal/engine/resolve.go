package engine

import (
	"machine-access-backend/internal/directory"
	"machine-access-backend/internal/registry"
)

// Decision is the outcome of resolving a fob code against the user
// directory and a machine's required authorizations. An unknown fob is
// not an error; it resolves to a nil user and authorized=false.
type Decision struct {
	User       *directory.User
	Authorized bool
}

// Resolve normalizes the fob code, looks it up in the directory, and
// checks the machine's required authorizations (any one suffices).
func Resolve(pol registry.Policy, dir *directory.Directory, fob string) (string, Decision) {
	norm := directory.NormalizeFob(fob)
	user := dir.Lookup(norm)
	if user == nil {
		return norm, Decision{}
	}
	return norm, Decision{
		User:       user,
		Authorized: user.HasAnyAuthorization(pol.AuthorizationsOr),
	}
}

// loginStatus is the badge context fed into the output recomputation.
// present means a badge is in the reader and either this report carried
// its login edge or a prior login is still tracked via CurrentUserFob.
type loginStatus struct {
	present    bool
	user       *directory.User
	authorized bool
}
