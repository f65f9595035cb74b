package query

import (
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khanglvm/devtools-hub/internal/param"
)

func newTestRouter(t *testing.T, rawQuery string) *Router {
	t.Helper()
	q, err := url.ParseQuery(rawQuery)
	require.NoError(t, err)
	return NewRouter("/base64", q)
}

func TestApply_MergeKeepsSiblings(t *testing.T) {
	prev := url.Values{"a": {"1"}, "b": {"2"}}
	next := Apply(prev, map[string]param.Raw{"a": {"9"}}, ReplaceIn)

	assert.Equal(t, url.Values{"a": {"9"}, "b": {"2"}}, next)
	assert.Equal(t, url.Values{"a": {"1"}, "b": {"2"}}, prev, "prev must not be modified")
}

func TestApply_ReplaceDropsSiblings(t *testing.T) {
	prev := url.Values{"a": {"1"}, "b": {"2"}}
	next := Apply(prev, map[string]param.Raw{"a": {"9"}}, Replace)
	assert.Equal(t, url.Values{"a": {"9"}}, next)
}

func TestApply_AbsentDeletesKey(t *testing.T) {
	prev := url.Values{"a": {"1"}, "b": {"2"}}
	next := Apply(prev, map[string]param.Raw{"a": nil}, PushIn)
	assert.Equal(t, url.Values{"b": {"2"}}, next)
	_, ok := next["a"]
	assert.False(t, ok)
}

func TestUpdateMode_Strings(t *testing.T) {
	for _, m := range []UpdateMode{ReplaceIn, Replace, PushIn, Push} {
		parsed, err := ParseUpdateMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}
	_, err := ParseUpdateMode("sideways")
	assert.Error(t, err)

	var zero UpdateMode
	assert.Equal(t, ReplaceIn, zero)
}

func TestParam_TabScenario(t *testing.T) {
	r := newTestRouter(t, "input=hello&mode=url")
	tab := BindDefault(r, "tab", param.String, "encode")

	require.NotNil(t, tab.Value())
	assert.Equal(t, "encode", *tab.Value())

	tab.Set(param.Ptr("decode"), ReplaceIn)
	assert.Equal(t, "decode", *tab.Value())
	assert.Equal(t, url.Values{"input": {"hello"}, "mode": {"url"}, "tab": {"decode"}}, r.Query())

	tab.Set(nil, ReplaceIn)
	_, present := r.Query()["tab"]
	assert.False(t, present, "unset value must remove the key")
	assert.Equal(t, "encode", *tab.Value())
	assert.Equal(t, url.Values{"input": {"hello"}, "mode": {"url"}}, r.Query())
}

func TestParam_ReplaceRemovesOtherKeys(t *testing.T) {
	r := newTestRouter(t, "a=1&b=2")
	p := Bind(r, "a", param.String)

	p.Set(param.Ptr("x"), Replace)
	assert.Equal(t, url.Values{"a": {"x"}}, r.Query())
}

func TestParam_EmptyStringNeverWritten(t *testing.T) {
	r := newTestRouter(t, "q=abc")
	p := Bind(r, "q", param.String)

	p.Set(param.Ptr(""), ReplaceIn)
	assert.Empty(t, r.Query())
	assert.Equal(t, "/base64", r.Location().String())
}

func TestParam_PushAddsHistoryEntry(t *testing.T) {
	r := newTestRouter(t, "")
	p := Bind(r, "n", param.Number)

	p.Set(param.Ptr(1.0), Push)
	p.Set(param.Ptr(2.0), PushIn)
	p.Set(param.Ptr(3.0), ReplaceIn)

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, 3.0, *p.Value())

	require.True(t, r.Back())
	assert.Equal(t, 1.0, *p.Value())
	require.True(t, r.Back())
	assert.Nil(t, p.Value())
	assert.False(t, r.Back())

	require.True(t, r.Forward())
	assert.Equal(t, 1.0, *p.Value())
}

func TestParam_PushTruncatesForwardEntries(t *testing.T) {
	r := newTestRouter(t, "")
	p := Bind(r, "n", param.Int)

	p.Set(param.Ptr(1), Push)
	p.Set(param.Ptr(2), Push)
	r.Back()
	p.Set(param.Ptr(5), Push)

	assert.Equal(t, 3, r.Len())
	assert.False(t, r.Forward())
	assert.Equal(t, 5, *p.Value())
}

func TestParam_UpdateUsesFreshestState(t *testing.T) {
	r := newTestRouter(t, "")
	counter := BindDefault(r, "count", param.Int, 0)

	const workers = 20
	const perWorker = 25

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				counter.Update(func(prev *int) *int {
					return param.Ptr(*prev + 1)
				}, ReplaceIn)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, workers*perWorker, *counter.Value())
}

func TestParam_UpdateComposesAcrossBindings(t *testing.T) {
	r := newTestRouter(t, "a=1")
	a := Bind(r, "a", param.Int)
	b := Bind(r, "b", param.Int)

	a.Update(func(prev *int) *int { return param.Ptr(*prev + 1) }, ReplaceIn)
	b.Update(func(prev *int) *int {
		if prev == nil {
			return param.Ptr(10)
		}
		return param.Ptr(*prev + 1)
	}, ReplaceIn)

	assert.Equal(t, url.Values{"a": {"2"}, "b": {"10"}}, r.Query())
}

func TestParam_SubscribeIsScopedToKey(t *testing.T) {
	r := newTestRouter(t, "")
	tab := Bind(r, "tab", param.String)
	other := Bind(r, "other", param.String)

	var seen []string
	cancel := tab.Subscribe(func(v *string) {
		if v == nil {
			seen = append(seen, "<nil>")
			return
		}
		seen = append(seen, *v)
	})

	other.Set(param.Ptr("x"), ReplaceIn)
	assert.Empty(t, seen, "unrelated key must not notify")

	tab.Set(param.Ptr("decode"), ReplaceIn)
	tab.Set(param.Ptr("decode"), ReplaceIn)
	tab.Set(nil, ReplaceIn)
	assert.Equal(t, []string{"decode", "<nil>"}, seen)

	cancel()
	tab.Set(param.Ptr("again"), ReplaceIn)
	assert.Len(t, seen, 2)
}

func TestSet_ValuesAndPartialUpdate(t *testing.T) {
	r := newTestRouter(t, "text=hi&keep=me")
	s := BindSet(r, map[string]param.AnyCodec{
		"text":  param.Erase(param.String),
		"count": param.Erase(param.WithDefault(param.Int, 1)),
		"tags":  param.Erase(param.StringArray),
	})

	vals := s.Values()
	assert.Equal(t, "hi", vals["text"])
	assert.Equal(t, 1, vals["count"])
	assert.Nil(t, vals["tags"])

	s.Set(Record{"tags": []string{"a", "b"}, "text": nil}, ReplaceIn)
	assert.Equal(t, url.Values{"keep": {"me"}, "tags": {"a", "b"}}, r.Query())

	s.Update(func(prev Record) Record {
		return Record{"count": prev["count"].(int) + 4}
	}, Replace)
	assert.Equal(t, url.Values{"count": {"5"}}, r.Query())
}

func TestSet_IgnoresUnknownKeys(t *testing.T) {
	r := newTestRouter(t, "")
	s := BindSet(r, map[string]param.AnyCodec{"a": param.Erase(param.String)})

	s.Set(Record{"a": "1", "zzz": "2"}, ReplaceIn)
	assert.Equal(t, url.Values{"a": {"1"}}, r.Query())
}

func TestSet_WrongTypeLeavesKeyUntouched(t *testing.T) {
	r := newTestRouter(t, "count=3&text=a")
	s := BindSet(r, map[string]param.AnyCodec{
		"count": param.Erase(param.Int),
		"text":  param.Erase(param.String),
	})

	s.Set(Record{"count": "5", "text": "b"}, ReplaceIn)
	assert.Equal(t, url.Values{"count": {"3"}, "text": {"b"}}, r.Query())
}

func TestSet_Subscribe(t *testing.T) {
	r := newTestRouter(t, "")
	s := BindSet(r, map[string]param.AnyCodec{"a": param.Erase(param.String)})

	calls := 0
	cancel := s.Subscribe(func(Record) { calls++ })
	defer cancel()

	Bind(r, "unrelated", param.String).Set(param.Ptr("x"), ReplaceIn)
	assert.Equal(t, 0, calls)

	s.Set(Record{"a": "1"}, ReplaceIn)
	assert.Equal(t, 1, calls)
}

func TestRouter_GoNotifiesPathSubscribers(t *testing.T) {
	r := NewRouter("/", nil)

	var paths []string
	cancel := r.SubscribePath(func(p string) { paths = append(paths, p) })
	defer cancel()

	r.Go("/hash", url.Values{"alg": {"sha256"}}, true)
	r.Go("/hash", nil, false)
	r.Back()

	assert.Equal(t, []string{"/hash", "/"}, paths)
	assert.Equal(t, "/", r.Path())
}

func TestParseRouter(t *testing.T) {
	r, err := ParseRouter("https://tools.example/uuid?count=3&v=4")
	require.NoError(t, err)
	assert.Equal(t, "/uuid", r.Path())
	assert.Equal(t, 3, *Bind(r, "count", param.Int).Value())
	assert.Equal(t, "/uuid?count=3&v=4", r.Location().String())
}

func TestRouter_RewriteFromSubscriberDeliveredInOrder(t *testing.T) {
	for i := 0; i < 50; i++ {
		r := newTestRouter(t, "")
		alg := Bind(r, "alg", param.String)

		cancelNormalize := alg.Subscribe(func(v *string) {
			if v != nil && *v == "SHA256" {
				lower := "sha256"
				alg.Set(&lower, ReplaceIn)
			}
		})

		var last *string
		cancelRecord := alg.Subscribe(func(v *string) { last = v })

		upper := "SHA256"
		alg.Set(&upper, ReplaceIn)

		require.NotNil(t, alg.Value())
		assert.Equal(t, "sha256", *alg.Value())
		require.NotNil(t, last)
		assert.Equal(t, "sha256", *last, "subscriber must end on the rewritten value")

		cancelNormalize()
		cancelRecord()
	}
}

func TestRouter_ConcurrentCommitsDeliveredInOrder(t *testing.T) {
	r := newTestRouter(t, "")
	n := Bind(r, "n", param.Int)

	var (
		mu   sync.Mutex
		seen []int
	)
	cancel := n.Subscribe(func(v *int) {
		mu.Lock()
		defer mu.Unlock()
		if v != nil {
			seen = append(seen, *v)
		}
	})
	defer cancel()

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			n.Set(&v, ReplaceIn)
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	require.NotNil(t, n.Value())
	assert.Equal(t, *n.Value(), seen[len(seen)-1])
}
