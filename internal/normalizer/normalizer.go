// Package normalizer gjør rå søketreff om til unike (repo, sha, parent_sha, author)-rader.
package normalizer

import (
	"log/slog"

	"github.com/jonmartinstorm/commitsnusern/internal/models"
)

type Stats struct {
	Input      int
	Emitted    int
	Malformed  int
	Duplicates int
}

// Normalize beholder første forekomst av hver (repo, sha) i opprinnelig rekkefølge.
// Treff uten repo eller sha hoppes over.
func Normalize(items []*models.SearchResultItem) ([]models.CommitRecord, Stats) {
	stats := Stats{Input: len(items)}
	seen := make(map[models.Key]struct{}, len(items))
	out := make([]models.CommitRecord, 0, len(items))

	for i, it := range items {
		rec, ok := ToRecord(it)
		if !ok {
			stats.Malformed++
			slog.Debug("Hopper over treff uten repo eller sha", "index", i)
			continue
		}
		if _, dup := seen[rec.Key()]; dup {
			stats.Duplicates++
			continue
		}
		seen[rec.Key()] = struct{}{}
		out = append(out, rec)
	}

	stats.Emitted = len(out)
	return out, stats
}

// ToRecord mapper ett treff. ok er false når repo eller sha mangler.
func ToRecord(it *models.SearchResultItem) (models.CommitRecord, bool) {
	if it == nil {
		return models.CommitRecord{}, false
	}

	repo := it.GetRepository().GetFullName()
	sha := it.GetSHA()
	if repo == "" || sha == "" {
		return models.CommitRecord{}, false
	}

	return models.CommitRecord{
		Repo:      repo,
		SHA:       sha,
		ParentSHA: parentSHA(it),
		Author:    ResolveAuthor(it),
	}, true
}

// ResolveAuthor foretrekker kontoens login, deretter navnet i commit-metadata.
func ResolveAuthor(it *models.SearchResultItem) string {
	if login := it.GetAuthor().GetLogin(); login != "" {
		return login
	}
	if name := it.GetCommit().GetAuthor().GetName(); name != "" {
		return name
	}
	return models.UnknownAuthor
}

func parentSHA(it *models.SearchResultItem) string {
	if len(it.Parents) == 0 || it.Parents[0] == nil {
		return ""
	}
	return it.Parents[0].GetSHA()
}
