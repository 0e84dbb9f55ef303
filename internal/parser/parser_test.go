package parser

import (
	"reflect"
	"testing"
)

func TestParse_Links(t *testing.T) {
	res := Parse([]byte("See [[Alpha]], [[Beta|the beta]] and [[Gamma#Intro]]. Again [[Alpha]]. Empty [[ ]]."))
	want := []string{"Alpha", "Beta", "Gamma"}
	if !reflect.DeepEqual(res.Links, want) {
		t.Errorf("links = %v, want %v", res.Links, want)
	}
}

func TestParse_Frontmatter(t *testing.T) {
	src := "---\ntags: [work, ideas]\n---\nBody with #todo and [[Link]]\n"
	res := Parse([]byte(src))
	if res.Frontmatter == nil {
		t.Fatal("frontmatter not parsed")
	}
	if res.Body != "Body with #todo and [[Link]]\n" {
		t.Errorf("body = %q", res.Body)
	}
	wantTags := []string{"work", "ideas", "todo"}
	if !reflect.DeepEqual(res.Tags, wantTags) {
		t.Errorf("tags = %v, want %v", res.Tags, wantTags)
	}
	if !reflect.DeepEqual(res.Links, []string{"Link"}) {
		t.Errorf("links = %v", res.Links)
	}
}

func TestParse_InvalidFrontmatterIsBody(t *testing.T) {
	src := "---\nkey: [unclosed\n---\ntext"
	res := Parse([]byte(src))
	if res.Frontmatter != nil {
		t.Errorf("frontmatter = %v, want nil", res.Frontmatter)
	}
	if res.Body != src {
		t.Errorf("body = %q", res.Body)
	}
}

func TestParse_PlainText(t *testing.T) {
	res := Parse([]byte("just words"))
	if res.Body != "just words" || len(res.Links) != 0 || len(res.Tags) != 0 {
		t.Errorf("result = %+v", res)
	}
}

func TestLinkTarget(t *testing.T) {
	cases := map[string]string{
		"Note":            "Note",
		" Note ":          "Note",
		"Note|alias":      "Note",
		"Note#Heading":    "Note",
		"Note#Head|alias": "Note",
	}
	for in, want := range cases {
		if got := LinkTarget(in); got != want {
			t.Errorf("LinkTarget(%q) = %q, want %q", in, got, want)
		}
	}
}
