package directory

// User is a single member record from the roster file. Records are
// immutable after load; a roster reload replaces the whole snapshot.
type User struct {
	FobCodes       []string `json:"fob_codes"`
	AccountID      string   `json:"account_id"`
	FullName       string   `json:"full_name"`
	FirstName      string   `json:"first_name"`
	PreferredName  string   `json:"preferred_name"`
	Email          string   `json:"email"`
	ExpirationYMD  string   `json:"expiration_ymd"`
	Authorizations []string `json:"authorizations"`
}

// DisplayName returns the name used on machine displays and in
// announcements: the preferred name if one is set, else the first name,
// else the full name.
func (u *User) DisplayName() string {
	if u.PreferredName != "" {
		return u.PreferredName
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.FullName
}

// HasAnyAuthorization reports whether the user holds at least one of the
// given authorization labels.
func (u *User) HasAnyAuthorization(required []string) bool {
	for _, want := range required {
		for _, have := range u.Authorizations {
			if have == want {
				return true
			}
		}
	}
	return false
}
