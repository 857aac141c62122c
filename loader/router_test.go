package loader

import (
	"testing"

	"github.com/zipix/zipix/cache"
	"github.com/zipix/zipix/imgcodec"
)

func routerKey(member string) cache.Key {
	return cache.NewKey("/a.zip", member, cache.OriginalVariant())
}

func routerResult(member string) Result {
	return Result{Key: routerKey(member), Image: &imgcodec.Image{Format: "png"}}
}

func TestRouterDeliversToExpectingConsumer(t *testing.T) {
	r := NewRouter()
	viewer := r.Register("viewer", 4)
	preview := r.Register("preview", 4)

	key := routerKey("001.png")
	viewer.Expect(key)
	preview.Expect(routerKey("002.png"))

	r.Deliver(routerResult("001.png"))

	select {
	case res := <-viewer.Results():
		if res.Key != key {
			t.Fatalf("unexpected key %s; want %s", res.Key, key)
		}
	default:
		t.Fatalf("expecting consumer received nothing")
	}
	select {
	case res := <-preview.Results():
		t.Fatalf("non-expecting consumer received %s", res.Key)
	default:
	}
}

func TestRouterDeliversToAllMatching(t *testing.T) {
	r := NewRouter()
	a := r.Register("a", 4)
	b := r.Register("b", 4)

	key := routerKey("001.png")
	a.Expect(key)
	b.Expect(key)

	r.Deliver(routerResult("001.png"))

	for _, c := range []*Consumer{a, b} {
		select {
		case res := <-c.Results():
			if res.Key != key {
				t.Fatalf("consumer %q: unexpected key %s", c.Name(), res.Key)
			}
		default:
			t.Fatalf("consumer %q received nothing", c.Name())
		}
	}
}

func TestRouterDropsStaleResults(t *testing.T) {
	r := NewRouter()
	viewer := r.Register("viewer", 4)

	// The cursor moved on before the result arrived.
	viewer.Expect(routerKey("001.png"))
	viewer.Expect(routerKey("002.png"))
	r.Deliver(routerResult("001.png"))

	select {
	case res := <-viewer.Results():
		t.Fatalf("stale result %s must be dropped", res.Key)
	default:
	}

	// ExpectNone drops everything.
	viewer.ExpectNone()
	r.Deliver(routerResult("002.png"))
	select {
	case res := <-viewer.Results():
		t.Fatalf("result %s delivered after ExpectNone", res.Key)
	default:
	}
}

func TestRouterShedsOldestWhenBacklogged(t *testing.T) {
	r := NewRouter()
	viewer := r.Register("viewer", 1)

	key := routerKey("001.png")
	viewer.Expect(key)

	first := routerResult("001.png")
	second := routerResult("001.png")
	second.Image = nil
	second.Err = errCanceled
	second.Kind = KindCanceled

	r.Deliver(first)
	r.Deliver(second) // buffer full: the first result is shed

	select {
	case res := <-viewer.Results():
		if res.Kind != KindCanceled {
			t.Fatalf("expected the newest result to survive, got %+v", res)
		}
	default:
		t.Fatalf("backlogged consumer lost both results")
	}
}

func TestRouterUnregister(t *testing.T) {
	r := NewRouter()
	viewer := r.Register("viewer", 4)
	viewer.Expect(routerKey("001.png"))

	r.Unregister("viewer")
	r.Deliver(routerResult("001.png"))

	select {
	case res := <-viewer.Results():
		t.Fatalf("unregistered consumer received %s", res.Key)
	default:
	}
}
