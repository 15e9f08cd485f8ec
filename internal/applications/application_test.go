package applications

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var submittedAt = time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

func TestNew_Valid(t *testing.T) {
	app, err := New("  Ivan ", "Kursk", "8 (900) 123-45-67", submittedAt)
	require.NoError(t, err)

	require.Equal(t, "Ivan", app.RequesterName)
	require.Equal(t, "Kursk", app.Settlement)
	require.Equal(t, "+79001234567", app.Phone)
	require.Equal(t, submittedAt, app.CreatedAt)
	require.Zero(t, app.ID)

	_, err = uuid.Parse(app.GUID)
	require.NoError(t, err)
	require.Equal(t, "Ivan +79001234567 from Kursk", app.String())
}

func TestNew_FieldErrors(t *testing.T) {
	tests := []struct {
		name       string
		reqName    string
		settlement string
		phone      string
		wantFields []string
	}{
		{name: "all empty", wantFields: []string{FieldName, FieldSettlement, FieldPhone}},
		{name: "name too long", reqName: strings.Repeat("я", MaxNameLength+1), settlement: "Kursk", phone: "+79001234567", wantFields: []string{FieldName}},
		{name: "settlement too long", reqName: "Ivan", settlement: strings.Repeat("x", MaxSettlementLength+1), phone: "+79001234567", wantFields: []string{FieldSettlement}},
		{name: "bad phone", reqName: "Ivan", settlement: "Kursk", phone: "call me", wantFields: []string{FieldPhone}},
		{name: "short phone", reqName: "Ivan", settlement: "Kursk", phone: "+7123", wantFields: []string{FieldPhone}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.reqName, tt.settlement, tt.phone, submittedAt)

			var fields FieldErrors
			require.ErrorAs(t, err, &fields)
			require.Len(t, fields, len(tt.wantFields))
			for _, f := range tt.wantFields {
				require.Contains(t, fields, f)
			}
		})
	}
}

func TestNew_NameLengthCountsRunes(t *testing.T) {
	_, err := New(strings.Repeat("я", MaxNameLength), "Kursk", "+79001234567", submittedAt)
	require.NoError(t, err)
}

func TestFieldErrors_Error(t *testing.T) {
	err := FieldErrors{FieldPhone: "required", FieldName: "required"}
	require.Equal(t, "invalid application: requester_name: required; phone_number: required", err.Error())
}

func TestFromForm(t *testing.T) {
	values := url.Values{}
	values.Set(FieldName, "Ivan")
	values.Set(FieldSettlement, "Kursk")
	values.Set(FieldPhone, "+7 900 123 45 67")

	app, err := FromForm(values, submittedAt)
	require.NoError(t, err)
	require.Equal(t, "+79001234567", app.Phone)
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "+79001234567", want: "+79001234567"},
		{raw: "89001234567", want: "+79001234567"},
		{raw: "79001234567", want: "+79001234567"},
		{raw: "+44 20 7946 0958", want: "+442079460958"},
		{raw: "", wantErr: true},
		{raw: "9001234567", wantErr: true},
		{raw: "+7900+1234567", wantErr: true},
		{raw: "+0 900 123 45 67", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := NormalizePhone(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizePhone_FormattingIsIgnored(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		digits := rapid.StringMatching(`[1-9][0-9]{9,13}`).Draw(t, "digits")
		seps := rapid.SliceOfN(rapid.SampledFrom([]string{"", " ", "-", "(", ")"}), len(digits), len(digits)).Draw(t, "seps")

		var b strings.Builder
		b.WriteString("+")
		for i, r := range digits {
			b.WriteRune(r)
			b.WriteString(seps[i])
		}

		got, err := NormalizePhone(b.String())
		if err != nil {
			t.Fatalf("normalize %q: %v", b.String(), err)
		}
		if got != "+"+digits {
			t.Fatalf("normalize %q = %q, want %q", b.String(), got, "+"+digits)
		}
	})
}
