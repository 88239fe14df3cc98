package feeds

import (
	"strings"

	"gator/query"

	"github.com/huandu/go-sqlbuilder"
)

// OwnerFilter keeps posts from feeds owned by UserId. Browsing is scoped by
// ownership, not by follows.
type OwnerFilter struct {
	UserId string
}

func (f *OwnerFilter) ApplyFilter(sb *sqlbuilder.SelectBuilder) {
	sb.Where(sb.Equal("feeds.user_id", f.UserId))
}

// TextFilter matches Text case-insensitively against the post title, the
// post description or the feed name.
type TextFilter struct {
	Text string
}

func (f *TextFilter) ApplyFilter(sb *sqlbuilder.SelectBuilder) {
	text := strings.TrimSpace(f.Text)
	if text == "" {
		return
	}

	columns := []string{"posts.title", "posts.description", "feeds.name"}
	conds := make([]string, len(columns))

	// SQLite has no ILIKE and its LOWER only folds ASCII
	if sb.Flavor() == sqlbuilder.PostgreSQL {
		for i, col := range columns {
			conds[i] = sb.ILike(col, "%"+text+"%")
		}
	} else {
		pattern := "%" + strings.ToLower(text) + "%"
		for i, col := range columns {
			conds[i] = sb.Like("LOWER("+col+")", pattern)
		}
	}
	sb.Where(sb.Or(conds...))
}

var _ query.FilterStrategy = (*OwnerFilter)(nil)
var _ query.FilterStrategy = (*TextFilter)(nil)
