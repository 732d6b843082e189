package generate

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"

	"github.com/matzehuels/figura/pkg/diagram"
)

func TestLiveLastRequestWins(t *testing.T) {
	entered := make(chan struct{})
	remote := GeneratorFunc(func(ctx context.Context, req Request) (diagram.Document, error) {
		close(entered)
		<-ctx.Done()
		return diagram.Document{}, ctx.Err()
	})
	live := NewLive(newTestRunner(t, remote))

	errc := make(chan error, 1)
	go func() {
		_, err := live.Submit(context.Background(), Request{Kind: diagram.KindFlow, Input: "slow", Mode: ModeRemote})
		errc <- err
	}()
	<-entered

	resp, err := live.Submit(context.Background(), Request{Kind: diagram.KindFlow, Input: "A -> B -> C"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.RequestID != 2 {
		t.Errorf("RequestID = %d, want 2", resp.RequestID)
	}

	err = <-errc
	if !stderrors.Is(err, ErrStale) || !stderrors.Is(err, ErrAborted) {
		t.Errorf("superseded request err = %v, want ErrStale and ErrAborted", err)
	}

	latest, ok := live.Latest()
	if !ok || latest.RequestID != 2 || latest.Document.NodeCount() != 3 {
		t.Errorf("Latest() = %+v, %v", latest, ok)
	}
}

func TestLiveCancelAppliesNothing(t *testing.T) {
	entered := make(chan struct{})
	remote := GeneratorFunc(func(ctx context.Context, req Request) (diagram.Document, error) {
		close(entered)
		<-ctx.Done()
		return diagram.Document{}, ctx.Err()
	})
	live := NewLive(newTestRunner(t, remote))

	errc := make(chan error, 1)
	go func() {
		_, err := live.Submit(context.Background(), Request{Kind: diagram.KindFlow, Input: "A -> B", Mode: ModeRemote})
		errc <- err
	}()
	<-entered
	live.Cancel()

	if err := <-errc; !stderrors.Is(err, ErrAborted) || !stderrors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want abort", err)
	}
	if _, ok := live.Latest(); ok {
		t.Error("a cancelled request must not be applied")
	}
}

func TestLiveSequential(t *testing.T) {
	live := NewLive(newTestRunner(t, nil))
	ctx := context.Background()
	for i, src := range []string{"Root", "Root\n  A", "Root\n  A\n  B"} {
		resp, err := live.Submit(ctx, Request{Kind: diagram.KindHierarchy, Input: src})
		if err != nil {
			t.Fatal(err)
		}
		if resp.Document.NodeCount() != i+1 {
			t.Errorf("submit %d: %d nodes", i, resp.Document.NodeCount())
		}
	}
	if live.Seq() != 3 {
		t.Errorf("Seq() = %d, want 3", live.Seq())
	}
	latest, _ := live.Latest()
	if latest.Document.NodeCount() != 3 {
		t.Errorf("Latest has %d nodes", latest.Document.NodeCount())
	}
}

func TestLiveConcurrentSubmits(t *testing.T) {
	live := NewLive(newTestRunner(t, nil))
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := live.Submit(context.Background(), Request{Kind: diagram.KindFlow, Input: "A -> B"})
			if err != nil && !stderrors.Is(err, ErrStale) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	latest, ok := live.Latest()
	if !ok {
		t.Fatal("no response applied")
	}
	if latest.RequestID > live.Seq() {
		t.Errorf("applied id %d beyond seq %d", latest.RequestID, live.Seq())
	}
}

func TestOffloadAbandoned(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := offload(ctx, func() (int, error) {
		<-release
		return 1, nil
	})
	if !stderrors.Is(err, ErrAborted) {
		t.Errorf("err = %v, want ErrAborted", err)
	}
}

func TestOffloadRecoversPanic(t *testing.T) {
	_, err := offload(context.Background(), func() (int, error) {
		panic("bad input")
	})
	if err == nil {
		t.Fatal("expected error from panicking worker")
	}
}
