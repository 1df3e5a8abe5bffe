package user

import "context"

type Repository interface {
	AddUser(ctx context.Context, u *User) error
	ListUsers(ctx context.Context) []*User
	FindUserByEmail(ctx context.Context, email string) (*User, error)
}
