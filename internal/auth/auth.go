// Package auth implements credential checking against a compiled-in
// static user table. Per spec, this does not protect against timing
// side channels — a non-goal for this system.
package auth

// entry is one (username, password) pair in the static table.
type entry struct {
	username string
	password string
}

// table mirrors the reference server's user_db: a small fixed set of
// accounts, byte-equality compared.
var table = []entry{
	{"jill", "eW94dsol"},
	{"jack", "432wlFd"},
	{"alice", "12345"},
	{"bob", "qwerty"},
}

// Authenticator checks credentials against the static table.
type Authenticator struct{}

func New() *Authenticator {
	return &Authenticator{}
}

// Authenticate reports whether username/password match an entry in
// the table exactly.
func (a *Authenticator) Authenticate(username, password string) bool {
	for _, e := range table {
		if e.username == username && e.password == password {
			return true
		}
	}
	return false
}
