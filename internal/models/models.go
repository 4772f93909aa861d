package models

import "github.com/google/go-github/v75/github"

// SearchResultItem er ett treff fra /search/commits. Alle felter er pekere og kan mangle;
// bruk Get-metodene for nil-sikker tilgang.
type SearchResultItem = github.CommitResult

// SearchPage er én side fra søke-APIet.
type SearchPage = github.CommitsSearchResult

// UnknownAuthor brukes når verken login eller commit-forfatter finnes.
const UnknownAuthor = "desconhecido"

// CommitRecord er den normaliserte raden som skrives til CSV og lagring.
type CommitRecord struct {
	Repo      string `json:"repo"`
	SHA       string `json:"sha"`
	ParentSHA string `json:"parent_sha"`
	Author    string `json:"author"`
}

// Key er dedupliseringsnøkkelen (repo, sha).
type Key struct {
	Repo string
	SHA  string
}

func (r CommitRecord) Key() Key {
	return Key{Repo: r.Repo, SHA: r.SHA}
}

// CSVHeader er den faste headeren i utfilen.
var CSVHeader = []string{"repo", "sha", "parent_sha", "author"}

func (r CommitRecord) CSVRow() []string {
	return []string{r.Repo, r.SHA, r.ParentSHA, r.Author}
}
