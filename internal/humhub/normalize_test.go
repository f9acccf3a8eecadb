package humhub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/humhub-notify/internal/model"
)

func TestDecode_Shapes(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		shape   string
		wantIDs []string
		wantErr bool
	}{
		{
			name:    "bare array with auto",
			body:    `[{"id":1,"message":"a"},{"id":2,"message":"b"}]`,
			shape:   model.ShapeAuto,
			wantIDs: []string{"1", "2"},
		},
		{
			name:    "results object with auto",
			body:    `{"total":1,"results":[{"id":"7","message":"x"}]}`,
			shape:   model.ShapeAuto,
			wantIDs: []string{"7"},
		},
		{
			name:    "notifications object with auto",
			body:    `{"notifications":[{"id":3}]}`,
			shape:   model.ShapeAuto,
			wantIDs: []string{"3"},
		},
		{
			name:    "results preferred over notifications",
			body:    `{"results":[{"id":1}],"notifications":[{"id":2}]}`,
			shape:   model.ShapeAuto,
			wantIDs: []string{"1"},
		},
		{
			name:    "explicit notifications shape ignores results",
			body:    `{"results":[{"id":1}],"notifications":[{"id":2}]}`,
			shape:   model.ShapeNotifications,
			wantIDs: []string{"2"},
		},
		{
			name:    "array shape rejects object",
			body:    `{"results":[]}`,
			shape:   model.ShapeArray,
			wantErr: true,
		},
		{
			name:    "results shape rejects array",
			body:    `[]`,
			shape:   model.ShapeResults,
			wantErr: true,
		},
		{
			name:    "object without a list",
			body:    `{"data":[]}`,
			shape:   model.ShapeAuto,
			wantErr: true,
		},
		{
			name:    "empty body",
			body:    "  ",
			shape:   model.ShapeAuto,
			wantErr: true,
		},
		{
			name:    "malformed json",
			body:    `[{"id":1`,
			shape:   model.ShapeAuto,
			wantErr: true,
		},
		{
			name:    "empty list",
			body:    `{"results":[]}`,
			shape:   model.ShapeAuto,
			wantIDs: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := Decode([]byte(tt.body), tt.shape)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, KindParse, KindOf(err))
				return
			}
			require.NoError(t, err)

			ids := make([]string, 0, len(list))
			for _, n := range list {
				ids = append(ids, n.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestDecode_NormalizesFields(t *testing.T) {
	body := `[{
		"id": 42,
		"message": "Alice commented on your post",
		"seen": 0,
		"originator": {"display_name": "Alice"},
		"created_at": 1700000000,
		"source": {"url": "https://hh.example.com/content/9"},
		"url": "https://hh.example.com/ignored"
	}]`

	list, err := Decode([]byte(body), model.ShapeAuto)
	require.NoError(t, err)
	require.Len(t, list, 1)

	n := list[0]
	assert.Equal(t, "42", n.ID)
	assert.Equal(t, "Alice commented on your post", n.Message)
	assert.False(t, n.Seen)
	assert.Equal(t, "Alice", n.Originator)
	assert.Equal(t, int64(1700000000000), n.CreatedAt)
	assert.Equal(t, "https://hh.example.com/content/9", n.SourceURL)
	assert.Nil(t, n.SeenLocallyAt)
}

func TestDecode_AlternateFieldNames(t *testing.T) {
	body := `[{
		"id": "abc",
		"seen": true,
		"originator": {"displayName": "Bob"},
		"created_at": 1,
		"createdAt": "2024-01-01T00:00:00Z",
		"url": "https://hh.example.com/x"
	}]`

	list, err := Decode([]byte(body), model.ShapeAuto)
	require.NoError(t, err)
	require.Len(t, list, 1)

	assert.Equal(t, "abc", list[0].ID)
	assert.True(t, list[0].Seen)
	assert.Equal(t, "Bob", list[0].Originator)
	assert.Equal(t, int64(1704067200000), list[0].CreatedAt)
	assert.Equal(t, "https://hh.example.com/x", list[0].SourceURL)
}

func TestDecode_DuplicateIDsKeepLastData(t *testing.T) {
	body := `[
		{"id": 1, "message": "first", "seen": false},
		{"id": 2, "message": "other"},
		{"id": "1", "message": "updated", "seen": true}
	]`

	list, err := Decode([]byte(body), model.ShapeAuto)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, "1", list[0].ID)
	assert.Equal(t, "updated", list[0].Message)
	assert.True(t, list[0].Seen)
	assert.Equal(t, "2", list[1].ID)
}

func TestDecode_MissingIDIsProcessingError(t *testing.T) {
	_, err := Decode([]byte(`[{"message":"no id"}]`), model.ShapeAuto)
	require.Error(t, err)
	assert.Equal(t, KindProcessing, KindOf(err))
	assert.Contains(t, err.Error(), "notification #0")
}

func TestDecode_OutOfRangeCreatedAtIsProcessingError(t *testing.T) {
	_, err := Decode([]byte(`[{"id":1,"created_at":1e30}]`), model.ShapeAuto)
	require.Error(t, err)
	assert.Equal(t, KindProcessing, KindOf(err))
}

func TestParseCreatedAt(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int64
		wantErr bool
	}{
		{name: "seconds", raw: `1700000000`, want: 1700000000000},
		{name: "fractional seconds", raw: `1700000000.5`, want: 1700000000500},
		{name: "milliseconds unchanged", raw: `1700000000123`, want: 1700000000123},
		{name: "numeric string seconds", raw: `"1700000000"`, want: 1700000000000},
		{name: "numeric string millis", raw: `"1700000000123"`, want: 1700000000123},
		{name: "rfc3339", raw: `"2024-01-01T00:00:00Z"`, want: 1704067200000},
		{name: "rfc3339 with offset", raw: `"2024-01-01T02:00:00+02:00"`, want: 1704067200000},
		{name: "sql datetime", raw: `"2024-01-01 00:00:00"`, want: 1704067200000},
		{name: "date only", raw: `"2024-01-01"`, want: 1704067200000},
		{name: "null", raw: `null`, want: 0},
		{name: "empty string", raw: `""`, want: 0},
		{name: "garbage", raw: `"yesterday"`, wantErr: true},
		{name: "object", raw: `{}`, wantErr: true},
		{name: "exponent overflow", raw: `1e30`, wantErr: true},
		{name: "integer overflow", raw: `99999999999999999999`, wantErr: true},
		{name: "negative overflow", raw: `-1e25`, wantErr: true},
		{name: "string overflow", raw: `"1e30"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCreatedAt([]byte(tt.raw))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSeen(t *testing.T) {
	tests := []struct {
		raw     string
		want    bool
		wantErr bool
	}{
		{raw: `true`, want: true},
		{raw: `false`, want: false},
		{raw: `1`, want: true},
		{raw: `0`, want: false},
		{raw: `"1"`, want: true},
		{raw: `"false"`, want: false},
		{raw: `null`, want: false},
		{raw: ``, want: false},
		{raw: `"maybe"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseSeen([]byte(tt.raw))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
