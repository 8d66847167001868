package service

import "strings"

// Editor is the capability every mutation requires. The HTTP layer builds it
// from an authenticated session; the services only check that it is valid.
type Editor struct {
	Username string
}

// Valid reports whether the editor was issued for an authenticated user.
func (e Editor) Valid() bool {
	return strings.TrimSpace(e.Username) != ""
}

func requireEditor(editor Editor) error {
	if !editor.Valid() {
		return ErrUnauthenticated
	}
	return nil
}
