package localization

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedKorean(t *testing.T) {
	l, err := NewLocalizer("ko")
	require.NoError(t, err)

	assert.Equal(t, "함께 LinkU를 제안했습니다.", l.Text("linku.propose.default"))
	assert.Equal(t, "LinkU가 수락되었습니다.", l.Text("linku.accept"))
	assert.Equal(t, "LinkU가 거절되었습니다.", l.Text("linku.reject"))
	assert.Equal(t, "Kim님이 후기를 남겼습니다.", l.Text("linku.review_notice", "Kim"))
}

func TestGetString_Fallbacks(t *testing.T) {
	fsys := fstest.MapFS{
		"i18n/en.json":   {Data: []byte(`{"a":"A","b":"B"}`)},
		"i18n/ko.json":   {Data: []byte(`{"a":"가"}`)},
		"i18n/notes.txt": {Data: []byte(`ignored`)},
	}
	l, err := NewLocalizerFS(fsys, "i18n", "ko")
	require.NoError(t, err)

	assert.Equal(t, "가", l.GetString("ko", "a"))
	assert.Equal(t, "B", l.GetString("ko", "b"), "falls back to English")
	assert.Equal(t, "A", l.GetString("fr", "a"))
	assert.Equal(t, "missing", l.GetString("ko", "missing"))
}

func TestNewLocalizerFS_Errors(t *testing.T) {
	_, err := NewLocalizerFS(fstest.MapFS{"i18n/en.json": {Data: []byte(`{`)}}, "i18n", "en")
	assert.Error(t, err)

	_, err = NewLocalizerFS(fstest.MapFS{"i18n/en.json": {Data: []byte(`{}`)}}, "i18n", "ko")
	assert.Error(t, err)

	_, err = NewLocalizerFS(fstest.MapFS{}, "nowhere", "en")
	assert.Error(t, err)
}
