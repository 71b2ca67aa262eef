package twiml

import (
	"strings"
	"testing"
)

func TestRender_VerbOrderAndAttributes(t *testing.T) {
	doc := Response{Verbs: []interface{}{
		Play{URL: "/audio/static-greeting"},
		NewGather("/telephony/voice/turn"),
		Say{Text: "Sorry, I didn't catch that."},
		Redirect{Method: "POST", URL: "/telephony/voice/inbound"},
	}}

	out, err := doc.Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	if !strings.HasPrefix(out, "<?xml") {
		t.Fatalf("missing xml declaration: %s", out)
	}
	wantInOrder := []string{
		"<Response>",
		"<Play>/audio/static-greeting</Play>",
		`<Gather input="speech" action="/telephony/voice/turn" method="POST" timeout="6">`,
		"<Say>Sorry, I didn&#39;t catch that.</Say>",
		`<Redirect method="POST">/telephony/voice/inbound</Redirect>`,
		"</Response>",
	}
	idx := 0
	for _, frag := range wantInOrder {
		pos := strings.Index(out[idx:], frag)
		if pos < 0 {
			t.Fatalf("missing or out-of-order fragment %q in %s", frag, out)
		}
		idx += pos + len(frag)
	}
}

func TestRender_NestedGatherVerbs(t *testing.T) {
	doc := Response{Verbs: []interface{}{
		NewGather("/telephony/voice/turn", Play{URL: "/audio/session-reply?call=CA1"}),
	}}
	out, err := doc.Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "<Gather") || !strings.Contains(out, "<Play>/audio/session-reply?call=CA1</Play>") {
		t.Fatalf("nested play missing: %s", out)
	}
	if strings.Index(out, "<Gather") > strings.Index(out, "<Play>") {
		t.Fatalf("play must nest inside gather: %s", out)
	}
}

func TestSanitize(t *testing.T) {
	got := Sanitize("  Tom & Jerry say <hello> to you >  ")
	if got != "Tom  Jerry say hello to you" {
		t.Fatalf("Sanitize: %q", got)
	}
	if Sanitize("plain text") != "plain text" {
		t.Fatal("Sanitize must pass clean text through")
	}
}
