package user

import (
	"context"
	"database/sql"

	userdb "github.com/nao1215/ecshop/internal/user/db"
	"golang.org/x/crypto/bcrypt"
)

// dummyPasswordHash は存在しないユーザー名に対する比較に使うbcryptハッシュ。
// ユーザーの存在有無で応答時間が変わらないよう、未知のユーザーでも
// 必ず1回ハッシュ比較を実行する。
var dummyPasswordHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

// validateCredentials はユーザー名とパスワードを検証する。
// 未知のユーザー名・無効化済みアカウント・パスワード不一致のいずれも
// エラーなしでfalseを返す。
func (s *Server) validateCredentials(ctx context.Context, username, password string) (userdb.User, bool) {
	u, err := s.queries.GetUserByUsername(ctx, username)
	if err == sql.ErrNoRows {
		// タイミング攻撃対策。ユーザーが存在しなくてもハッシュ比較を行う。
		_ = bcrypt.CompareHashAndPassword(dummyPasswordHash, []byte(password))
		return userdb.User{}, false
	}
	if err != nil {
		return userdb.User{}, false
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return userdb.User{}, false
	}
	if !u.IsActive {
		return userdb.User{}, false
	}

	return u, true
}
