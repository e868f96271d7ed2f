package voices

import (
	"sort"
	"testing"
)

func TestDefaultCatalogLookups(t *testing.T) {
	catalog := Default()
	if catalog.Len() == 0 {
		t.Fatal("expected built-in voices")
	}
	if !catalog.Contains("zh-CN-XiaoxiaoNeural") {
		t.Fatal("expected default Mandarin voice to be present")
	}
	if catalog.Contains("zh-CN-NotARealVoice") {
		t.Fatal("unknown voice must not validate")
	}
	if catalog.Contains("") {
		t.Fatal("empty voice must not validate")
	}
}

func TestCatalogListSorted(t *testing.T) {
	catalog := New(
		Voice{ID: "en-US-GuyNeural"},
		Voice{ID: "en-AU-NatashaNeural"},
		Voice{ID: "zh-CN-YunxiNeural"},
	)
	list := catalog.List()
	ids := make([]string, len(list))
	for i, v := range list {
		ids[i] = v.ID
	}
	if !sort.StringsAreSorted(ids) {
		t.Fatalf("expected sorted listing, got %v", ids)
	}
}

func TestVoiceLocaleAndLanguage(t *testing.T) {
	v := Voice{ID: "en-GB-LibbyNeural"}
	if v.Locale() != "en-GB" {
		t.Fatalf("unexpected locale: %q", v.Locale())
	}
	if v.ASRLanguage() != "en" {
		t.Fatalf("unexpected ASR language: %q", v.ASRLanguage())
	}

	regional := Voice{ID: "zh-CN-liaoning-XiaobeiNeural"}
	if regional.Locale() != "zh-CN-liaoning" {
		t.Fatalf("unexpected regional locale: %q", regional.Locale())
	}
	if regional.ASRLanguage() != "zh" {
		t.Fatalf("unexpected regional ASR language: %q", regional.ASRLanguage())
	}
}

func TestCatalogInjection(t *testing.T) {
	custom := New(Voice{ID: "xx-XX-TestNeural", Gender: "Female"})
	if !custom.Contains("xx-XX-TestNeural") {
		t.Fatal("injected voice should validate")
	}
	if custom.Contains("zh-CN-XiaoxiaoNeural") {
		t.Fatal("injected catalog must not include defaults")
	}
}
