// Package model はドメインモデルを定義する。
package model

// UserProfile はGitHubユーザーのプロフィールを表す。
// 成功レスポンスのデコードによってのみ生成され、生成後は不変として扱う。
// IDはユーザーを一意に識別する。
type UserProfile struct {
	ID          int64   `json:"id"`
	Login       string  `json:"login"`
	AvatarURL   string  `json:"avatar_url"`
	HTMLURL     string  `json:"html_url"`
	Name        *string `json:"name"`
	Bio         *string `json:"bio"`
	PublicRepos int     `json:"public_repos"`
	Followers   int     `json:"followers"`
	Following   int     `json:"following"`
}

// Equal は全フィールドの構造的比較で等価性を判定する。
// NameとBioはnullableのため、nil有無と値の両方を比較する。
func (p *UserProfile) Equal(other *UserProfile) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.ID == other.ID &&
		p.Login == other.Login &&
		p.AvatarURL == other.AvatarURL &&
		p.HTMLURL == other.HTMLURL &&
		equalStringPtr(p.Name, other.Name) &&
		equalStringPtr(p.Bio, other.Bio) &&
		p.PublicRepos == other.PublicRepos &&
		p.Followers == other.Followers &&
		p.Following == other.Following
}

// equalStringPtr はnullable文字列の等価性を判定する。
func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
