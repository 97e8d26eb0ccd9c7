package tradelimits

import (
	"sync"
	"sync/atomic"

	"github.com/mezonai/accounting/events"
	"github.com/mezonai/accounting/exception"
	"github.com/mezonai/accounting/governance"
	"github.com/mezonai/accounting/logx"
	"github.com/mezonai/accounting/monitoring"
)

const (
	firstMonthDivisor = 4
	roundingStep      = 10_000
	roundingBias      = 5_000
)

// ParamService resolves governance params at a block height.
type ParamService interface {
	GetParamValueAsCoin(param governance.Param, height uint64) int64
}

type ChainHeightProvider interface {
	ChainHeight() uint64
}

// TradeLimits caches the DAO max trade limit until the next parsed block.
type TradeLimits struct {
	params ParamService
	height ChainHeightProvider

	// bumped on every parsed block; entries of older generations are stale
	generation          atomic.Uint64
	cachedMaxTradeLimit atomic.Pointer[cachedLimit]
}

type cachedLimit struct {
	generation uint64
	value      int64
}

func NewTradeLimits(params ParamService, height ChainHeightProvider) *TradeLimits {
	return &TradeLimits{
		params: params,
		height: height,
	}
}

// OnParseBlockComplete drops the cached limit.
func (t *TradeLimits) OnParseBlockComplete() {
	t.generation.Add(1)
}

// Listen invalidates the cache on every ParseBlockComplete event published
// on bus until stop is called. An event that does not fit in the listener
// buffer invalidates the cache from inside Publish.
func (t *TradeLimits) Listen(bus *events.EventBus) (stop func()) {
	id, ch := bus.SubscribeWithOptions(events.SubscribeOptions{
		Filter: events.OfTypes(events.EventParseBlockComplete),
		OnDrop: func(events.Event) { t.OnParseBlockComplete() },
	})
	done := make(chan struct{})

	exception.SafeGo("trade limits listener", func() {
		defer close(done)
		for range ch {
			t.OnParseBlockComplete()
		}
	})

	var once sync.Once
	return func() {
		once.Do(func() {
			bus.Unsubscribe(id)
			<-done
		})
	}
}

// MaxTradeLimitFromDaoParam returns the MAX_TRADE_LIMIT param in satoshi at
// the current chain height.
func (t *TradeLimits) MaxTradeLimitFromDaoParam() int64 {
	gen := t.generation.Load()
	cached := t.cachedMaxTradeLimit.Load()
	if cached != nil && cached.generation == gen {
		return cached.value
	}

	height := t.height.ChainHeight()
	limit := t.params.GetParamValueAsCoin(governance.MaxTradeLimit, height)
	// a block parsed during the lookup leaves this entry stale, later reads
	// skip it by generation
	entry := &cachedLimit{generation: gen, value: limit}
	for cached == nil || cached.generation < gen {
		if t.cachedMaxTradeLimit.CompareAndSwap(cached, entry) {
			break
		}
		cached = t.cachedMaxTradeLimit.Load()
	}
	monitoring.IncreaseTradeLimitCacheMiss()
	logx.Debug("TRADE_LIMITS", "Max trade limit at height ", height, " is ", limit)
	return limit
}

// RoundedRiskBasedTradeLimit is the trade limit once the account age is no
// longer considered, four times the first month limit. riskFactor must be
// positive.
func (t *TradeLimits) RoundedRiskBasedTradeLimit(maxLimit, riskFactor int64) int64 {
	return FirstMonthRiskBasedTradeLimit(maxLimit, riskFactor) * firstMonthDivisor
}

// FirstMonthRiskBasedTradeLimit is a quarter of maxLimit divided by
// riskFactor, rounded to 10000 satoshi so the BTC amount has at most four
// decimals. riskFactor must be positive.
func FirstMonthRiskBasedTradeLimit(maxLimit, riskFactor int64) int64 {
	smallestLimit := maxLimit / (firstMonthDivisor * riskFactor)
	return ((smallestLimit + roundingBias) / roundingStep) * roundingStep
}
