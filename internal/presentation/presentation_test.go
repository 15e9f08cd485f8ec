package presentation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/recruitsite/recruit/internal/content"
	"github.com/recruitsite/recruit/internal/entity"
	"github.com/recruitsite/recruit/internal/mocks"
	"github.com/recruitsite/recruit/internal/renderdata"
)

func initializedRegistry(t *testing.T) *renderdata.Registry {
	t.Helper()
	reader := mocks.NewMockReader(t)
	notProvisioned := fmt.Errorf("no such table: %w", entity.ErrNotProvisioned)

	reader.EXPECT().FetchSingleton(mock.Anything, entity.TypeOf[*content.SiteSettings]()).Return(&content.SiteSettings{}, nil)
	reader.EXPECT().FetchSingleton(mock.Anything, entity.TypeOf[*content.Payments]()).Return(nil, notProvisioned)
	reader.EXPECT().FetchSingleton(mock.Anything, entity.TypeOf[*content.RecruitersContacts]()).Return(&content.RecruitersContacts{}, nil)
	reader.EXPECT().FetchCollection(mock.Anything, entity.TypeOf[*content.FAQPoint]()).
		Return([]any{&content.FAQPoint{ID: 1}, &content.FAQPoint{ID: 2}}, nil)
	reader.EXPECT().FetchCollection(mock.Anything, entity.TypeOf[*content.RecruitersBranch]()).Return([]any{}, nil)

	reg := renderdata.NewRegistry()
	require.NoError(t, content.Register(reg))
	require.NoError(t, reg.Initialize(context.Background(), renderdata.Options{Reader: reader}))
	return reg
}

func intPtr(n int) *int { return &n }

func TestFromRegistry(t *testing.T) {
	dtos := FromRegistry(context.Background(), initializedRegistry(t))

	require.Equal(t, []SlotDTO{
		{Name: "faq_points", Kind: "collection", EntityType: "FAQPoint", Status: StatusCached, Size: intPtr(2)},
		{Name: "page", Kind: "required", EntityType: "Page", Status: StatusPerRequest},
		{Name: "payments", Kind: "singleton", EntityType: "Payments", Status: StatusUnavailable},
		{Name: "recruiters_branchs", Kind: "collection", EntityType: "RecruitersBranch", Status: StatusCached, Size: intPtr(0)},
		{Name: "recruiters_contacts", Kind: "singleton", EntityType: "RecruitersContacts", Status: StatusCached},
		{Name: "site_settings", Kind: "singleton", EntityType: "SiteSettings", Status: StatusCached},
	}, dtos)
}

func TestFromRegistry_BeforeInitialize(t *testing.T) {
	reg := renderdata.NewRegistry()
	require.NoError(t, content.Register(reg))

	for _, dto := range FromRegistry(context.Background(), reg) {
		require.Equal(t, StatusPerRequest, dto.Status, dto.Name)
		require.Nil(t, dto.Size)
	}
}

func TestFormatter_JSON(t *testing.T) {
	var buf bytes.Buffer
	f, err := NewFormatter(&buf, "")
	require.NoError(t, err)

	require.NoError(t, f.FormatSlots([]SlotDTO{{Name: "faq_points", Kind: "collection", EntityType: "FAQPoint", Status: StatusCached, Size: intPtr(3)}}))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Equal(t, "faq_points", decoded[0]["name"])
	require.Equal(t, float64(3), decoded[0]["size"])
	require.Contains(t, buf.String(), "\n  {", "output is indented")
}

func TestFormatter_YAML(t *testing.T) {
	var buf bytes.Buffer
	f, err := NewFormatter(&buf, FormatYAML)
	require.NoError(t, err)

	require.NoError(t, f.FormatSlots([]SlotDTO{{Name: "page", Kind: "required", EntityType: "Page", Status: StatusPerRequest}}))

	var decoded []SlotDTO
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	require.Equal(t, "page", decoded[0].Name)
	require.NotContains(t, buf.String(), "size", "empty size is omitted")
}

func TestNewFormatter_RejectsUnknownFormat(t *testing.T) {
	_, err := NewFormatter(&bytes.Buffer{}, "xml")
	require.ErrorContains(t, err, "unsupported output format")
}
