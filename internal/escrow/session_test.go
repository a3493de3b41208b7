package escrow

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dwarvesf/escrow-history/internal/model"
	"github.com/dwarvesf/escrow-history/internal/types/chains"
)

type stubScanner struct {
	mu       sync.Mutex
	requests []ScanRequest
	scan     func(ctx context.Context, req ScanRequest) ([]model.TransferEvent, error)
}

func (s *stubScanner) Scan(ctx context.Context, req ScanRequest) ([]model.TransferEvent, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	return s.scan(ctx, req)
}

func (s *stubScanner) lastRequest() ScanRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

func eventAt(block uint64) model.TransferEvent {
	return model.TransferEvent{BlockNumber: block, TxHash: "0xabc", Direction: model.In}
}

var _ = Describe("Session", func() {
	var (
		ctx     context.Context
		scanner *stubScanner
		session *Session
	)

	BeforeEach(func() {
		ctx = context.Background()
		scanner = &stubScanner{
			scan: func(_ context.Context, req ScanRequest) ([]model.TransferEvent, error) {
				return []model.TransferEvent{eventAt(uint64(req.HistoryDays))}, nil
			},
		}
		session = NewSession(scanner, WindowPolicy{StepDays: 3, MaxDays: 6})
	})

	Describe("#Select", func() {
		It("should scan one step of history for the selected account", func() {
			events, err := session.Select(ctx, chains.Polygon, "0xescrow")
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(1))

			req := scanner.lastRequest()
			Expect(req.Chain).To(Equal(chains.Polygon))
			Expect(req.EscrowAddress).To(Equal("0xescrow"))
			Expect(req.HistoryDays).To(Equal(3))
		})

		It("should reset the window when switching accounts", func() {
			_, err := session.Select(ctx, chains.Polygon, "0xfirst")
			Expect(err).NotTo(HaveOccurred())
			_, err = session.LoadMore(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(session.State().Days).To(Equal(6))

			_, err = session.Select(ctx, chains.BSC, "0xsecond")
			Expect(err).NotTo(HaveOccurred())
			Expect(scanner.lastRequest().HistoryDays).To(Equal(3))
			Expect(session.State().EscrowAddress).To(Equal("0xsecond"))
		})

		It("should drop results of a superseded scan", func() {
			release := make(chan struct{})
			started := make(chan struct{})
			scanner.scan = func(_ context.Context, req ScanRequest) ([]model.TransferEvent, error) {
				if req.EscrowAddress == "0xslow" {
					close(started)
					<-release
					return []model.TransferEvent{eventAt(1)}, nil
				}
				return []model.TransferEvent{eventAt(2)}, nil
			}

			var (
				wg      sync.WaitGroup
				slowErr error
			)
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				_, slowErr = session.Select(ctx, chains.Polygon, "0xslow")
			}()
			<-started

			events, err := session.Select(ctx, chains.Polygon, "0xfast")
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(ConsistOf(eventAt(2)))

			close(release)
			wg.Wait()

			Expect(errors.Is(slowErr, ErrStaleScan)).To(BeTrue())
			state := session.State()
			Expect(state.EscrowAddress).To(Equal("0xfast"))
			Expect(state.Events).To(ConsistOf(eventAt(2)))
		})
	})

	Describe("#LoadMore", func() {
		It("should extend the window by one step", func() {
			_, err := session.Select(ctx, chains.Polygon, "0xescrow")
			Expect(err).NotTo(HaveOccurred())

			events, err := session.LoadMore(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(ConsistOf(eventAt(6)))
			Expect(session.State().CanLoadMore).To(BeFalse())
		})

		It("should not scan again once the window is at its maximum", func() {
			_, err := session.Select(ctx, chains.Polygon, "0xescrow")
			Expect(err).NotTo(HaveOccurred())
			_, err = session.LoadMore(ctx)
			Expect(err).NotTo(HaveOccurred())

			events, err := session.LoadMore(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(ConsistOf(eventAt(6)))
			Expect(scanner.requests).To(HaveLen(2))
		})

		It("should keep the loaded window when the wider scan fails", func() {
			_, err := session.Select(ctx, chains.Polygon, "0xescrow")
			Expect(err).NotTo(HaveOccurred())

			failure := errors.New("rpc down")
			scanner.scan = func(context.Context, ScanRequest) ([]model.TransferEvent, error) {
				return nil, failure
			}

			events, err := session.LoadMore(ctx)
			Expect(err).To(MatchError(failure))
			Expect(events).To(ConsistOf(eventAt(3)))
			Expect(scanner.lastRequest().HistoryDays).To(Equal(6))

			state := session.State()
			Expect(state.Days).To(Equal(3))
			Expect(state.CanLoadMore).To(BeTrue())
			Expect(state.Events).To(ConsistOf(eventAt(3)))
		})
	})

	Describe("#Refresh", func() {
		It("should keep the previous history when the scan fails", func() {
			_, err := session.Select(ctx, chains.Polygon, "0xescrow")
			Expect(err).NotTo(HaveOccurred())

			failure := errors.New("rpc down")
			scanner.scan = func(context.Context, ScanRequest) ([]model.TransferEvent, error) {
				return nil, failure
			}

			events, err := session.Refresh(ctx)
			Expect(err).To(MatchError(failure))
			Expect(events).To(ConsistOf(eventAt(3)))

			state := session.State()
			Expect(state.LastError).To(Equal("rpc down"))
			Expect(state.Events).To(ConsistOf(eventAt(3)))
		})
	})
})
