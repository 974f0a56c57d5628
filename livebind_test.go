package livebind

import (
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"testing"

	"golang.org/x/net/html"

	"github.com/goliatone/go-livebind/pkg/dom"
	"github.com/goliatone/go-livebind/pkg/source"
)

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type fixture struct {
	doc       *html.Node
	container *html.Node
	src       *source.NodeSource
}

// newFixture builds a page with one data-bound container and returns the
// pieces a test needs to drive it.
func newFixture(t *testing.T, data, templateBody string) *fixture {
	t.Helper()
	page := `<html><body>` +
		`<script type="application/json" id="cfg">` + data + `</script>` +
		`<div id="box" data-source="cfg"><template>` + templateBody + `</template></div>` +
		`</body></html>`
	doc, err := dom.ParseDocumentString(page)
	if err != nil {
		t.Fatalf("parse page: %v", err)
	}
	return &fixture{
		doc:       doc,
		container: dom.FindByID(doc, "box"),
		src:       source.NewNodeSource(dom.FindByID(doc, "cfg")),
	}
}

func (f *fixture) containerHTML(t *testing.T) string {
	t.Helper()
	out, err := dom.RenderString(f.container)
	if err != nil {
		t.Fatalf("serialise container: %v", err)
	}
	return out
}

func TestBindRendersImmediately(t *testing.T) {
	t.Parallel()

	f := newFixture(t, `{"name":"Ada"}`, `<span>{name}</span>`)
	b := Bind(f.doc, f.container, WithSource(f.src), quiet())
	defer b.Close()

	want := `<div id="box" data-source="cfg"><span>Ada</span><template><span>{name}</span></template></div>`
	if got := f.containerHTML(t); got != want {
		t.Fatalf("got %s\nwant %s", got, want)
	}
}

func TestBindResolvesSourceFromAttribute(t *testing.T) {
	t.Parallel()

	f := newFixture(t, `{"name":"Ada"}`, `<span>{name}</span>`)
	b := Bind(f.doc, f.container, quiet())
	defer b.Close()

	if got := f.containerHTML(t); got != `<div id="box" data-source="cfg"><span>Ada</span><template><span>{name}</span></template></div>` {
		t.Fatalf("got %s", got)
	}
}

func TestRenderTracksDataMutations(t *testing.T) {
	t.Parallel()

	f := newFixture(t, `[]`, `<span>{name || 'nobody'}</span>`)
	b := Bind(f.doc, f.container, WithSource(f.src), quiet())
	defer b.Close()

	// Empty array renders the fragment once with an empty object so the
	// fallback shows.
	if got := f.containerHTML(t); got != `<div id="box" data-source="cfg"><span>nobody</span><template><span>{name || &#39;nobody&#39;}</span></template></div>` {
		t.Fatalf("initial: %s", got)
	}

	f.src.SetText(`[{"name":"A"}]`)
	if got := f.containerHTML(t); got != `<div id="box" data-source="cfg"><span>A</span><template><span>{name || &#39;nobody&#39;}</span></template></div>` {
		t.Fatalf("after first append: %s", got)
	}

	f.src.SetText(`[{"name":"A"},{"name":"B"}]`)
	if got := f.containerHTML(t); got != `<div id="box" data-source="cfg"><span>A</span><span>B</span><template><span>{name || &#39;nobody&#39;}</span></template></div>` {
		t.Fatalf("after second append: %s", got)
	}
}

func TestTemplatePreservedAcrossRenders(t *testing.T) {
	t.Parallel()

	f := newFixture(t, `{"n":"1"}`, `<i>{n}</i>`)
	b := Bind(f.doc, f.container, WithSource(f.src), quiet())
	defer b.Close()

	tpl := dom.FirstChildTemplate(f.container)
	before, err := dom.RenderString(tpl)
	if err != nil {
		t.Fatalf("serialise template: %v", err)
	}

	for i := 0; i < 5; i++ {
		f.src.SetText(`{"n":"2"}`)
	}

	if got := dom.FirstChildTemplate(f.container); got != tpl {
		t.Fatal("template node replaced")
	}
	after, err := dom.RenderString(tpl)
	if err != nil {
		t.Fatalf("serialise template: %v", err)
	}
	if before != after {
		t.Fatalf("template mutated:\nbefore: %s\nafter:  %s", before, after)
	}

	templates := 0
	for child := f.container.FirstChild; child != nil; child = child.NextSibling {
		if dom.IsTemplate(child) {
			templates++
		}
	}
	if templates != 1 {
		t.Fatalf("container holds %d templates, want 1", templates)
	}
}

func TestInvalidJSONKeepsPreviousOutput(t *testing.T) {
	t.Parallel()

	f := newFixture(t, `{"name":"Ada"}`, `<span>{name}</span>`)
	b := Bind(f.doc, f.container, WithSource(f.src), quiet())
	defer b.Close()

	good := f.containerHTML(t)

	f.src.SetText(`{oops`)
	if got := f.containerHTML(t); got != good {
		t.Fatalf("stale output replaced:\ngot  %s\nwant %s", got, good)
	}

	// The next valid write recovers.
	f.src.SetText(`{"name":"Grace"}`)
	if got := f.containerHTML(t); got == good {
		t.Fatal("render did not resume after valid write")
	}
}

func TestMissingTemplateIsInert(t *testing.T) {
	t.Parallel()

	doc, err := dom.ParseDocumentString(`<html><body><script type="application/json" id="cfg">{}</script><div id="box" data-source="cfg"><p>static</p></div></body></html>`)
	if err != nil {
		t.Fatalf("parse page: %v", err)
	}
	container := dom.FindByID(doc, "box")

	b := Bind(doc, container, quiet())
	defer b.Close()

	out, err := dom.RenderString(container)
	if err != nil {
		t.Fatalf("serialise: %v", err)
	}
	if out != `<div id="box" data-source="cfg"><p>static</p></div>` {
		t.Fatalf("inert container changed: %s", out)
	}
}

func TestMissingSourceIsInert(t *testing.T) {
	t.Parallel()

	doc, err := dom.ParseDocumentString(`<html><body><div id="box" data-source="nope"><template><span>{x}</span></template></div></body></html>`)
	if err != nil {
		t.Fatalf("parse page: %v", err)
	}
	container := dom.FindByID(doc, "box")

	b := Bind(doc, container, quiet())
	defer b.Close()

	out, err := dom.RenderString(container)
	if err != nil {
		t.Fatalf("serialise: %v", err)
	}
	if out != `<div id="box" data-source="nope"><template><span>{x}</span></template></div>` {
		t.Fatalf("inert container changed: %s", out)
	}

	// There is no retry path: a Render call on an inert binder stays a no-op.
	b.Render()
	after, _ := dom.RenderString(container)
	if after != out {
		t.Fatal("inert binder rendered")
	}
}

func TestCloseStopsRendering(t *testing.T) {
	t.Parallel()

	f := newFixture(t, `{"name":"Ada"}`, `<span>{name}</span>`)
	b := Bind(f.doc, f.container, WithSource(f.src), quiet())

	before := f.containerHTML(t)
	b.Close()
	b.Close() // idempotent

	f.src.SetText(`{"name":"Grace"}`)
	if got := f.containerHTML(t); got != before {
		t.Fatalf("render after Close:\ngot  %s\nwant %s", got, before)
	}
}

func TestRenderHookRunsAfterEachPass(t *testing.T) {
	t.Parallel()

	f := newFixture(t, `{"name":"Ada"}`, `<span>{name}</span>`)

	calls := 0
	b := Bind(f.doc, f.container, WithSource(f.src), quiet(), WithRenderHook(func() { calls++ }))
	defer b.Close()

	if calls != 1 {
		t.Fatalf("calls after Bind = %d, want 1", calls)
	}
	f.src.SetText(`{"name":"Grace"}`)
	if calls != 2 {
		t.Fatalf("calls after mutation = %d, want 2", calls)
	}
	// Aborted passes do not fire the hook.
	f.src.SetText(`{oops`)
	if calls != 2 {
		t.Fatalf("calls after invalid write = %d, want 2", calls)
	}
}

func TestBindAll(t *testing.T) {
	t.Parallel()

	page := `<html><body>` +
		`<script type="application/json" id="a">{"v":"one"}</script>` +
		`<script type="application/json" id="b">{"v":"two"}</script>` +
		`<div data-source="a"><template><i>{v}</i></template></div>` +
		`<div data-source="b"><template><i>{v}</i></template></div>` +
		`</body></html>`
	doc, err := dom.ParseDocumentString(page)
	if err != nil {
		t.Fatalf("parse page: %v", err)
	}

	binders := BindAll(doc, quiet())
	defer func() {
		for _, b := range binders {
			b.Close()
		}
	}()

	if len(binders) != 2 {
		t.Fatalf("bound %d containers, want 2", len(binders))
	}

	out, err := dom.RenderString(doc)
	if err != nil {
		t.Fatalf("serialise: %v", err)
	}
	for _, want := range []string{"<i>one</i>", "<i>two</i>"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestBindAllSharesDocumentLock(t *testing.T) {
	t.Parallel()

	page := `<html><body>` +
		`<script type="application/json" id="a">{"v":"one"}</script>` +
		`<script type="application/json" id="b">{"v":"two"}</script>` +
		`<div data-source="a"><template><i>{v}</i></template></div>` +
		`<div data-source="b"><template><i>{v}</i></template></div>` +
		`</body></html>`
	doc, err := dom.ParseDocumentString(page)
	if err != nil {
		t.Fatalf("parse page: %v", err)
	}

	binders := BindAll(doc, quiet())
	defer func() {
		for _, b := range binders {
			b.Close()
		}
	}()

	if len(binders) != 2 {
		t.Fatalf("bound %d containers, want 2", len(binders))
	}
	if binders[0].mu != binders[1].mu {
		t.Fatal("binders on one document must share the document lock")
	}
}

// Two containers in one document, notified from separate goroutines while a
// hook serialises the whole tree. With the shared document lock every pass
// and hook is mutually exclusive, so the serialisation never observes a
// half-swapped sibling list.
func TestConcurrentNotificationsAreSerialized(t *testing.T) {
	t.Parallel()

	page := `<html><body>` +
		`<script type="application/json" id="a">{"v":"0"}</script>` +
		`<script type="application/json" id="b">{"v":"0"}</script>` +
		`<div id="boxa" data-source="a"><template><i>{v}</i></template></div>` +
		`<div id="boxb" data-source="b"><template><i>{v}</i></template></div>` +
		`</body></html>`
	doc, err := dom.ParseDocumentString(page)
	if err != nil {
		t.Fatalf("parse page: %v", err)
	}

	srcA := source.NewNodeSource(dom.FindByID(doc, "a"))
	srcB := source.NewNodeSource(dom.FindByID(doc, "b"))

	var docMu sync.Mutex
	hook := func() {
		if _, err := dom.RenderString(doc); err != nil {
			t.Errorf("serialise during hook: %v", err)
		}
	}

	bindOpts := func(src source.Source) []Option {
		return []Option{
			quiet(),
			WithSource(src),
			WithDocumentLock(&docMu),
			WithRenderHook(hook),
		}
	}
	a := Bind(doc, dom.FindByID(doc, "boxa"), bindOpts(srcA)...)
	defer a.Close()
	b := Bind(doc, dom.FindByID(doc, "boxb"), bindOpts(srcB)...)
	defer b.Close()

	const writes = 25
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < writes; i++ {
			srcA.SetText(`{"v":"` + strconv.Itoa(i) + `"}`)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < writes; i++ {
			srcB.SetText(`{"v":"` + strconv.Itoa(i) + `"}`)
		}
	}()
	wg.Wait()

	out, err := dom.RenderString(doc)
	if err != nil {
		t.Fatalf("serialise: %v", err)
	}
	want := "<i>" + strconv.Itoa(writes-1) + "</i>"
	if strings.Count(out, want) != 2 {
		t.Fatalf("final output missing %q twice:\n%s", want, out)
	}
}
