package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Lifetime はトークンの有効期間。失効は厳密で、時計ずれの猶予は設けない。
const Lifetime = 60 * time.Minute

// ErrInvalidToken は署名不正・発行者/受信者の不一致・期限切れなど、
// トークンを受け入れられないことを表す。期待される失敗であり、例外的な状況ではない。
var ErrInvalidToken = errors.New("トークンが無効です")

// Config はトークンの発行・検証に必要な設定。起動時に一度だけ構築し、
// 以降は変更しない。
type Config struct {
	// Secret はHS256署名用の共有秘密鍵。
	Secret string
	// Issuer は発行者クレーム（iss）として埋め込む値。
	Issuer string
	// Audience は受信者クレーム（aud）として埋め込む値。
	Audience string
}

// DefaultIssuer はデフォルトの発行者名。
const DefaultIssuer = "ecshop"

// DefaultAudience はデフォルトの受信者名。
const DefaultAudience = "ecshop-users"

// InsecureDevSecret はローカル開発用のデフォルト秘密鍵。
// 本番環境では必ずJWT_SECRETで上書きすること。
const InsecureDevSecret = "dev-secret-key"

// Claims はJWTのペイロード。ユーザーの識別情報をサービス間で伝播するために使う。
type Claims struct {
	jwt.RegisteredClaims
	// Username はユーザー名。
	Username string `json:"username"`
	// Email はメールアドレス。
	Email string `json:"email"`
}

// Principal は検証済みトークンから導出された認証済みユーザー。
// リクエストごとに生成し、リクエストの終了とともに破棄する。永続化しない。
type Principal struct {
	// UserID はユーザーの一意識別子。
	UserID string
	// Username はユーザー名。
	Username string
	// Email はメールアドレス。
	Email string
}

// IsAuthenticated は認証済みのプリンシパルかどうかを返す。
// ゼロ値のPrincipalは匿名ユーザーを表す。
func (p Principal) IsAuthenticated() bool {
	return p.UserID != ""
}

// Issue はプリンシパルの情報を埋め込んだ署名付きトークンを発行する。
// 有効期限は現在時刻から60分後。発行したトークンと失効時刻を返す。
func Issue(cfg Config, userID, username, email string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(Lifetime)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Username: username,
		Email:    email,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("トークンの署名に失敗: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate はトークンを検証し、成功した場合はプリンシパルを返す。
// 署名・発行者・受信者・有効期限のいずれかが不正な場合はErrInvalidTokenを返す。
// 有効期限の判定に猶予（clock skew）は持たせない。
func Validate(cfg Config, raw string) (Principal, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(_ *jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(cfg.Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return Principal{}, ErrInvalidToken
	}

	return Principal{
		UserID:   claims.Subject,
		Username: claims.Username,
		Email:    claims.Email,
	}, nil
}
