package user

import (
	"context"
	"log"

	"github.com/google/uuid"
	userdb "github.com/nao1215/ecshop/internal/user/db"
	"golang.org/x/crypto/bcrypt"
)

// seed はテーブルが空の場合にデモ用のユーザーを投入する。
func (s *Server) seed() error {
	ctx := context.Background()

	total, err := s.queries.CountUsers(ctx)
	if err != nil {
		return err
	}
	if total > 0 {
		return nil
	}

	seeds := []struct {
		username  string
		email     string
		password  string
		firstName string
		lastName  string
	}{
		{username: "admin", email: "admin@example.com", password: "admin123", firstName: "Admin", lastName: "User"},
		{username: "ahmed", email: "ahmed@example.com", password: "ahmed123", firstName: "Ahmed", lastName: "Hassan"},
		{username: "testuser", email: "testuser@example.com", password: "password123", firstName: "Test", lastName: "User"},
	}

	for _, u := range seeds {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		if err := s.queries.CreateUser(ctx, userdb.CreateUserParams{
			ID:           uuid.New().String(),
			Username:     u.username,
			Email:        u.email,
			PasswordHash: string(hash),
			FirstName:    u.firstName,
			LastName:     u.lastName,
		}); err != nil {
			return err
		}
	}
	log.Printf("ユーザーシードデータを%d件投入しました", len(seeds))

	return nil
}
