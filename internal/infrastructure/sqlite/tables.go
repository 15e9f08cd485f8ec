package sqlite

import (
	"reflect"
	"strings"

	"github.com/recruitsite/recruit/internal/content"
	"github.com/recruitsite/recruit/internal/entity"
)

// table maps one content entity type to its SQL table.
type table struct {
	name      string
	columns   []string
	orderBy   string
	singleton bool

	newValue func() any
	values   func(v any) []any
	dest     func(v any) []any
	idPtr    func(v any) *int64
}

// defineTable describes the table for *T. values and dest list the columns in
// order; idPtr is nil for singleton entities, whose id is always
// content.SingletonID.
func defineTable[T any](name string, columns []string, orderBy string,
	values func(*T) []any, dest func(*T) []any, idPtr func(*T) *int64) *table {
	t := &table{
		name:      name,
		columns:   columns,
		orderBy:   orderBy,
		singleton: entity.IsSingleton(entity.TypeOf[*T]()),
		newValue:  func() any { return new(T) },
		values:    func(v any) []any { return values(v.(*T)) },
		dest:      func(v any) []any { return dest(v.(*T)) },
	}
	if idPtr != nil {
		t.idPtr = func(v any) *int64 { return idPtr(v.(*T)) }
	}
	return t
}

func (t *table) selectSQL() string {
	return "SELECT id, " + strings.Join(t.columns, ", ") + " FROM " + t.name
}

func (t *table) placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func (t *table) insertSQL() string {
	return "INSERT INTO " + t.name + " (" + strings.Join(t.columns, ", ") + ") VALUES (" + t.placeholders(len(t.columns)) + ")"
}

func (t *table) updateSQL() string {
	sets := make([]string, len(t.columns))
	for i, c := range t.columns {
		sets[i] = c + " = ?"
	}
	return "UPDATE " + t.name + " SET " + strings.Join(sets, ", ") + " WHERE id = ?"
}

// upsertSQL writes the singleton row, creating it if missing.
func (t *table) upsertSQL() string {
	sets := make([]string, len(t.columns))
	for i, c := range t.columns {
		sets[i] = c + " = excluded." + c
	}
	return "INSERT INTO " + t.name + " (id, " + strings.Join(t.columns, ", ") + ") VALUES (?, " + t.placeholders(len(t.columns)) +
		") ON CONFLICT(id) DO UPDATE SET " + strings.Join(sets, ", ")
}

// scan reads one row into a new value.
func (t *table) scan(row interface{ Scan(...any) error }) (any, error) {
	v := t.newValue()
	var id int64
	idDest := &id
	if t.idPtr != nil {
		idDest = t.idPtr(v)
	}
	if err := row.Scan(append([]any{idDest}, t.dest(v)...)...); err != nil {
		return nil, err
	}
	return v, nil
}

// contentTables maps every content entity type to its table.
var contentTables = map[reflect.Type]*table{
	entity.TypeOf[*content.SiteSettings](): defineTable("site_settings",
		[]string{"favicon", "video", "robots_txt", "head_html", "body_html"}, "",
		func(s *content.SiteSettings) []any {
			return []any{s.Favicon, s.Video, s.RobotsTxt, s.HeadHTML, s.BodyHTML}
		},
		func(s *content.SiteSettings) []any {
			return []any{&s.Favicon, &s.Video, &s.RobotsTxt, &s.HeadHTML, &s.BodyHTML}
		},
		nil,
	),

	entity.TypeOf[*content.RecruitersContacts](): defineTable("recruiters_contacts",
		[]string{"telegram", "vk", "dzen", "classmates"}, "",
		func(c *content.RecruitersContacts) []any {
			return []any{c.Telegram, c.VK, c.Dzen, c.Classmates}
		},
		func(c *content.RecruitersContacts) []any {
			return []any{&c.Telegram, &c.VK, &c.Dzen, &c.Classmates}
		},
		nil,
	),

	entity.TypeOf[*content.Payments](): defineTable("payments",
		[]string{
			"total_first_year", "total_first_month", "monthly",
			"regional_title", "regional_amount",
			"city_title", "city_amount",
			"ministry_title", "ministry_amount",
			"ministry_other_title", "ministry_other_amount",
			"additional_title", "additional_amount",
		}, "",
		func(p *content.Payments) []any {
			return []any{
				p.TotalFirstYear, p.TotalFirstMonth, p.Monthly,
				p.Regional.Title, p.Regional.Amount,
				p.City.Title, p.City.Amount,
				p.Ministry.Title, p.Ministry.Amount,
				p.MinistryOther.Title, p.MinistryOther.Amount,
				p.Additional.Title, p.Additional.Amount,
			}
		},
		func(p *content.Payments) []any {
			return []any{
				&p.TotalFirstYear, &p.TotalFirstMonth, &p.Monthly,
				&p.Regional.Title, &p.Regional.Amount,
				&p.City.Title, &p.City.Amount,
				&p.Ministry.Title, &p.Ministry.Amount,
				&p.MinistryOther.Title, &p.MinistryOther.Amount,
				&p.Additional.Title, &p.Additional.Amount,
			}
		},
		nil,
	),

	entity.TypeOf[*content.FAQPoint](): defineTable("faq_points",
		[]string{"question", "answer", "position"}, "position, id",
		func(f *content.FAQPoint) []any { return []any{f.Question, f.Answer, f.Position} },
		func(f *content.FAQPoint) []any { return []any{&f.Question, &f.Answer, &f.Position} },
		func(f *content.FAQPoint) *int64 { return &f.ID },
	),

	entity.TypeOf[*content.RecruitersBranch](): defineTable("recruiters_branches",
		[]string{"address", "phone", "coordinates"}, "id",
		func(b *content.RecruitersBranch) []any { return []any{b.Address, b.Phone, b.Coordinates} },
		func(b *content.RecruitersBranch) []any { return []any{&b.Address, &b.Phone, &b.Coordinates} },
		func(b *content.RecruitersBranch) *int64 { return &b.ID },
	),

	entity.TypeOf[*content.Page](): defineTable("pages",
		[]string{"file_name", "name", "title", "seo_content"}, "id",
		func(p *content.Page) []any { return []any{p.FileName, p.Name, p.Title, p.SEOContent} },
		func(p *content.Page) []any { return []any{&p.FileName, &p.Name, &p.Title, &p.SEOContent} },
		func(p *content.Page) *int64 { return &p.ID },
	),
}
