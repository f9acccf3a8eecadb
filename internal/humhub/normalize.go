package humhub

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/humhub-notify/internal/model"
)

// secondsDigits is the longest integer (in digits) still read as seconds.
const secondsDigits = 10

// maxEpoch is 2^63, the first magnitude an int64 cannot hold.
const maxEpoch = float64(1 << 63)

// calendarLayouts are tried in order for string timestamps. Layouts
// without a zone are read as UTC.
var calendarLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Decode extracts the notification list from a response body using the
// given shape adapter, normalizes every item and drops duplicate ids.
func Decode(body []byte, shape string) ([]model.Notification, error) {
	items, err := extractList(body, shape)
	if err != nil {
		return nil, newError(KindParse, "fetch", 0, err)
	}

	list := make([]model.Notification, 0, len(items))
	for i, item := range items {
		n, err := normalize(item)
		if err != nil {
			return nil, newError(KindProcessing, "fetch", 0,
				fmt.Errorf("notification #%d: %w", i, err))
		}
		list = append(list, n)
	}

	return dedupe(list), nil
}

// extractList finds the notification array in body. "auto" accepts a
// bare array, then an object keyed by results, then notifications.
func extractList(body []byte, shape string) ([]wireNotification, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errors.New("empty response body")
	}

	if trimmed[0] == '[' {
		if shape != model.ShapeAuto && shape != model.ShapeArray {
			return nil, fmt.Errorf("expected an object with %q, got an array", shape)
		}
		var items []wireNotification
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decoding notification array: %w", err)
		}
		return items, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	var keys []string
	switch shape {
	case model.ShapeArray:
		return nil, errors.New("expected an array, got an object")
	case model.ShapeResults:
		keys = []string{"results"}
	case model.ShapeNotifications:
		keys = []string{"notifications"}
	default:
		keys = []string{"results", "notifications"}
	}

	for _, key := range keys {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		var items []wireNotification
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("decoding %q: %w", key, err)
		}
		return items, nil
	}

	return nil, fmt.Errorf("no notification list under %s", strings.Join(keys, " or "))
}

// normalize converts one wire item into the canonical model.
func normalize(w wireNotification) (model.Notification, error) {
	id, err := parseID(w.ID)
	if err != nil {
		return model.Notification{}, err
	}

	seen, err := parseSeen(w.Seen)
	if err != nil {
		return model.Notification{}, fmt.Errorf("id %s: %w", id, err)
	}

	raw := w.CreatedAt
	if !isNull(w.CreatedAtAlt) {
		raw = w.CreatedAtAlt
	}
	createdAt, err := parseCreatedAt(raw)
	if err != nil {
		return model.Notification{}, fmt.Errorf("id %s: %w", id, err)
	}

	n := model.Notification{
		ID:        id,
		Message:   w.Message,
		Seen:      seen,
		CreatedAt: createdAt,
		SourceURL: w.URL,
	}
	if w.Originator != nil {
		n.Originator = w.Originator.DisplayName
		if n.Originator == "" {
			n.Originator = w.Originator.DisplayNameAlt
		}
	}
	if w.Source != nil && w.Source.URL != "" {
		n.SourceURL = w.Source.URL
	}
	return n, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func parseID(raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", errors.New("missing id")
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("decoding id: %w", err)
		}
		if s == "" {
			return "", errors.New("empty id")
		}
		return s, nil
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err != nil {
		return "", fmt.Errorf("id must be a string or number: %s", raw)
	}
	return num.String(), nil
}

// parseSeen accepts booleans, 0/1 and their string forms. A missing
// value counts as unread.
func parseSeen(raw json.RawMessage) (bool, error) {
	if isNull(raw) {
		return false, nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	var s string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return false, fmt.Errorf("decoding seen: %w", err)
		}
	} else {
		s = string(raw)
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true":
		return true, nil
	case "0", "false", "":
		return false, nil
	}
	return false, fmt.Errorf("unrecognized seen value %s", raw)
}

// parseCreatedAt returns epoch milliseconds for a number or a string.
func parseCreatedAt(raw json.RawMessage) (int64, error) {
	if isNull(raw) {
		return 0, nil
	}
	if raw[0] != '"' {
		return scaleEpoch(string(raw))
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("decoding created_at: %w", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if isNumeric(s) {
		return scaleEpoch(s)
	}
	for _, layout := range calendarLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli(), nil
		}
	}
	return 0, fmt.Errorf("unparseable created_at %q", s)
}

// scaleEpoch reads values of up to ten integer digits as seconds and
// anything longer as milliseconds already.
func scaleEpoch(lit string) (int64, error) {
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid numeric created_at %q", lit)
	}
	if math.Abs(f) >= maxEpoch {
		return 0, fmt.Errorf("created_at %q out of range", lit)
	}
	whole := int64(math.Abs(math.Trunc(f)))
	if len(strconv.FormatInt(whole, 10)) <= secondsDigits {
		return int64(math.Round(f * 1000)), nil
	}
	return int64(f), nil
}

func isNumeric(s string) bool {
	for _, c := range s {
		if !strings.ContainsRune("0123456789.-+eE", c) {
			return false
		}
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// dedupe keeps one entry per id: the last occurrence's data at the
// first occurrence's position.
func dedupe(list []model.Notification) []model.Notification {
	index := make(map[string]int, len(list))
	out := make([]model.Notification, 0, len(list))
	for _, n := range list {
		if i, ok := index[n.ID]; ok {
			out[i] = n
			continue
		}
		index[n.ID] = len(out)
		out = append(out, n)
	}
	return out
}
