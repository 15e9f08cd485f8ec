// Package content defines the site's content entities and registers them as
// render-data slots.
package content

import (
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/recruitsite/recruit/internal/renderdata"
)

// SingletonID is the primary key of every singleton content row.
const SingletonID int64 = 1

// Validation errors
var (
	ErrEmptyQuestion = errors.New("question cannot be empty")
	ErrEmptyAnswer   = errors.New("answer cannot be empty")
	ErrEmptyAddress  = errors.New("branch address cannot be empty")
	ErrEmptyPhone    = errors.New("branch phone cannot be empty")
	ErrEmptyFileName = errors.New("page file name cannot be empty")
	ErrEmptyPageName = errors.New("page name cannot be empty")
)

// SiteSettings holds site-wide assets and markup injected into every page.
type SiteSettings struct {
	Favicon   string
	Video     string
	RobotsTxt string
	HeadHTML  string
	BodyHTML  string
}

func (*SiteSettings) SingletonID() int64 { return SingletonID }

// HeadAddition returns HeadHTML for verbatim output inside <head>.
func (s *SiteSettings) HeadAddition() template.HTML {
	return template.HTML(s.HeadHTML) // #nosec G203 -- admin-authored markup
}

// BodyAddition returns BodyHTML for verbatim output inside <body>.
func (s *SiteSettings) BodyAddition() template.HTML {
	return template.HTML(s.BodyHTML) // #nosec G203 -- admin-authored markup
}

// RecruitersContacts are the recruiters' social links.
type RecruitersContacts struct {
	Telegram   string
	VK         string
	Dzen       string
	Classmates string
}

func (*RecruitersContacts) SingletonID() int64 { return SingletonID }

// Payment is a titled one-off payment.
type Payment struct {
	Title  string
	Amount string
}

// Payments lists what a recruit is paid. Amounts are display strings.
type Payments struct {
	TotalFirstYear  string
	TotalFirstMonth string
	Monthly         string

	Regional      Payment
	City          Payment
	Ministry      Payment
	MinistryOther Payment
	Additional    Payment
}

func (*Payments) SingletonID() int64 { return SingletonID }

// OneOff returns the one-off payments that have an amount, in display order.
func (p *Payments) OneOff() []Payment {
	var out []Payment
	for _, payment := range []Payment{p.Regional, p.City, p.Ministry, p.MinistryOther, p.Additional} {
		if strings.TrimSpace(payment.Amount) != "" {
			out = append(out, payment)
		}
	}
	return out
}

// FAQPoint is one question on the main page. Points are shown by Position.
type FAQPoint struct {
	ID       int64
	Question string
	Answer   string
	Position int
}

// Validate checks the point before it is stored.
func (f *FAQPoint) Validate() error {
	if strings.TrimSpace(f.Question) == "" {
		return ErrEmptyQuestion
	}
	if strings.TrimSpace(f.Answer) == "" {
		return ErrEmptyAnswer
	}
	return nil
}

// AnswerHTML returns the answer markup for verbatim output.
func (f *FAQPoint) AnswerHTML() template.HTML {
	return template.HTML(f.Answer) // #nosec G203 -- admin-authored markup
}

// RecruitersBranch is a recruiting office.
type RecruitersBranch struct {
	ID          int64
	Address     string
	Phone       string
	Coordinates string
}

// Validate checks the branch before it is stored.
func (b *RecruitersBranch) Validate() error {
	if strings.TrimSpace(b.Address) == "" {
		return ErrEmptyAddress
	}
	if strings.TrimSpace(b.Phone) == "" {
		return ErrEmptyPhone
	}
	return nil
}

// Page is a site page. FileName names its template, without the .html suffix.
type Page struct {
	ID         int64
	FileName   string
	Name       string
	Title      string
	SEOContent string
}

// Validate checks the page before it is stored.
func (p *Page) Validate() error {
	if strings.TrimSpace(p.FileName) == "" {
		return ErrEmptyFileName
	}
	if strings.HasSuffix(p.FileName, ".html") {
		return fmt.Errorf("page file name %q must not end in .html", p.FileName)
	}
	if strings.ContainsAny(p.FileName, `/\`) {
		return fmt.Errorf("page file name %q must not contain a path separator", p.FileName)
	}
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyPageName
	}
	return nil
}

// SEOHTML returns the page's SEO markup for verbatim output.
func (p *Page) SEOHTML() template.HTML {
	return template.HTML(p.SEOContent) // #nosec G203 -- admin-authored markup
}

// Register adds every content entity to reg: the singletons and collections
// as cached slots and Page as a required slot.
func Register(reg *renderdata.Registry) error {
	registrations := []func(*renderdata.Registry) error{
		renderdata.Register[*SiteSettings],
		renderdata.Register[*RecruitersContacts],
		renderdata.Register[*Payments],
		renderdata.Register[*FAQPoint],
		renderdata.Register[*RecruitersBranch],
		renderdata.Require[*Page],
	}
	for _, register := range registrations {
		if err := register(reg); err != nil {
			return fmt.Errorf("register content slots: %w", err)
		}
	}
	return nil
}
