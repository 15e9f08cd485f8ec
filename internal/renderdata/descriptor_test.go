package renderdata

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlotName(t *testing.T) {
	tests := []struct {
		name string
		desc Descriptor
		want string
	}{
		{name: "singleton", desc: NewDescriptor(siteSettingsType, KindSingleton), want: "site_settings"},
		{name: "collection is pluralised", desc: NewDescriptor(faqPointType, KindCollection), want: "faq_points"},
		{name: "required", desc: NewDescriptor(pageType, KindRequired), want: "page"},
		{name: "literal s plural", desc: NewDescriptor(typeOf(&RecruitersBranch{}), KindCollection), want: "recruiters_branchs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.desc.Name)
		})
	}
}

func TestKind_String(t *testing.T) {
	require.Equal(t, "singleton", KindSingleton.String())
	require.Equal(t, "collection", KindCollection.String())
	require.Equal(t, "required", KindRequired.String())
	require.Equal(t, "kind(7)", Kind(7).String())

	require.True(t, KindSingleton.Cached())
	require.True(t, KindCollection.Cached())
	require.False(t, KindRequired.Cached())
}

func TestDescriptor_String(t *testing.T) {
	d := NewDescriptor(faqPointType, KindCollection)
	require.Equal(t, "faq_points(collection FAQPoint)", d.String())
}
