package response

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Envelope は成功・失敗を問わず全レスポンスに適用する共通形式。
type Envelope[T any] struct {
	// Success は処理が成功したかどうか。
	Success bool `json:"success"`
	// Message は人間向けの結果メッセージ。
	Message string `json:"message"`
	// Data は成功時のペイロード。失敗時はnull。
	Data T `json:"data"`
	// Errors はフィールド単位のエラーメッセージの一覧。
	Errors []string `json:"errors"`
}

// Paged はページング付き一覧レスポンスのペイロード。
type Paged[T any] struct {
	// Items は現在のページに含まれる要素。
	Items []T `json:"items"`
	// TotalCount は条件に合致する全要素数。
	TotalCount int64 `json:"total_count"`
	// PageNumber は現在のページ番号（1始まり）。
	PageNumber int `json:"page_number"`
	// PageSize は1ページあたりの要素数。
	PageSize int `json:"page_size"`
	// TotalPages は総ページ数。
	TotalPages int `json:"total_pages"`
}

// NewPaged はページング情報を計算してPagedを構築する。
// pageSizeが0以下の場合は1として扱う。
func NewPaged[T any](items []T, totalCount int64, pageNumber, pageSize int) Paged[T] {
	if pageSize <= 0 {
		pageSize = 1
	}
	totalPages := int(totalCount) / pageSize
	if int(totalCount)%pageSize != 0 {
		totalPages++
	}
	return Paged[T]{
		Items:      items,
		TotalCount: totalCount,
		PageNumber: pageNumber,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// OK は200とともに成功エンベロープを書き込む。
func OK[T any](c *gin.Context, message string, data T) {
	c.JSON(http.StatusOK, Envelope[T]{Success: true, Message: message, Data: data, Errors: []string{}})
}

// Created は201とともに成功エンベロープを書き込む。
func Created[T any](c *gin.Context, message string, data T) {
	c.JSON(http.StatusCreated, Envelope[T]{Success: true, Message: message, Data: data, Errors: []string{}})
}

// Fail は指定ステータスで失敗エンベロープを書き込む。Dataはnullになる。
func Fail(c *gin.Context, status int, message string) {
	FailWithErrors(c, status, message, nil)
}

// FailWithErrors はフィールド単位のエラー一覧を伴う失敗エンベロープを書き込む。
// バリデーション失敗（400）で使用する。内部エラーの詳細は決して含めないこと。
func FailWithErrors(c *gin.Context, status int, message string, errs []string) {
	if errs == nil {
		errs = []string{}
	}
	c.JSON(status, Envelope[any]{Success: false, Message: message, Data: nil, Errors: errs})
}

// BindError はリクエストボディのバインド失敗を400エンベロープに変換する。
// バリデーションエラーの場合はフィールド単位のメッセージを列挙する。
func BindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s: %s制約に違反しています", fe.Field(), fe.Tag()))
		}
		FailWithErrors(c, http.StatusBadRequest, "リクエストが不正です", msgs)
		return
	}
	Fail(c, http.StatusBadRequest, "リクエストが不正です")
}
