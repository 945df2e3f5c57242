package security

import "testing"

func TestSanitizeText(t *testing.T) {
	sanitizer := NewProfileSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "プレーンテキストはそのまま", input: "Alice", want: "Alice"},
		{name: "空文字列", input: "", want: ""},
		{name: "前後の空白を除去", input: "  Bob  ", want: "Bob"},
		{name: "アポストロフィを保持", input: "O'Brien", want: "O'Brien"},
		{name: "アンパサンドを保持", input: "Smith & Sons", want: "Smith & Sons"},
		{name: "タグを除去", input: "<b>Carol</b>", want: "Carol"},
		{name: "scriptは内容ごと除去", input: "<script>alert(1)</script>Dave", want: "Dave"},
		{name: "イベント属性付きタグを除去", input: `<img src=x onerror="alert(1)">Eve`, want: "Eve"},
		{name: "エスケープ済みタグは山括弧を残さない", input: "&lt;b&gt;Frank", want: "bFrank"},
		{name: "日本語", input: "山田 太郎", want: "山田 太郎"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizer.SanitizeText(tt.input); got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeText_Idempotent(t *testing.T) {
	sanitizer := NewProfileSanitizer()

	inputs := []string{"<i>Grace</i>", "O'Brien", "Smith & Sons", "&lt;x&gt;"}
	for _, in := range inputs {
		once := sanitizer.SanitizeText(in)
		twice := sanitizer.SanitizeText(once)
		if once != twice {
			t.Errorf("SanitizeText not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}
