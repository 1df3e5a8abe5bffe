package user

// User is an identity record. The email doubles as the user's alias for
// lookups and task assignments. Users are immutable once created; uniqueness
// of id and email is enforced by the store, not here.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func New(id, name, email string) *User {
	return &User{
		ID:    id,
		Name:  name,
		Email: email,
	}
}
