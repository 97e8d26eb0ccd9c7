package governance

import "fmt"

// Param is a DAO governed parameter.
type Param string

const (
	// MaxTradeLimit is the highest trade amount in satoshi for the lowest risk
	// payment methods.
	MaxTradeLimit Param = "MAX_TRADE_LIMIT"
	// DefaultMakerFeeBtc is the maker fee in satoshi per BTC traded.
	DefaultMakerFeeBtc Param = "DEFAULT_MAKER_FEE_BTC"
	// DefaultTakerFeeBtc is the taker fee in satoshi per BTC traded.
	DefaultTakerFeeBtc Param = "DEFAULT_TAKER_FEE_BTC"
	// MinMakerFeeBtc is the lower bound of the maker fee in satoshi.
	MinMakerFeeBtc Param = "MIN_MAKER_FEE_BTC"
	// MinTakerFeeBtc is the lower bound of the taker fee in satoshi.
	MinTakerFeeBtc Param = "MIN_TAKER_FEE_BTC"
)

// defaults in satoshi, used until a change is activated
var defaultValues = map[Param]int64{
	MaxTradeLimit:      200_000_000,
	DefaultMakerFeeBtc: 200_000,
	DefaultTakerFeeBtc: 600_000,
	MinMakerFeeBtc:     10_000,
	MinTakerFeeBtc:     42_000,
}

func (p Param) String() string {
	return string(p)
}

// DefaultValue returns the value of p before any change was activated.
func (p Param) DefaultValue() int64 {
	return defaultValues[p]
}

func (p Param) Valid() bool {
	_, ok := defaultValues[p]
	return ok
}

// ParseParam returns the Param named name.
func ParseParam(name string) (Param, error) {
	p := Param(name)
	if !p.Valid() {
		return "", fmt.Errorf("unknown param: %s", name)
	}
	return p, nil
}

// ParamChange activates Value for Param from block Height on.
type ParamChange struct {
	Param  Param  `yaml:"param" json:"param"`
	Height uint64 `yaml:"height" json:"height"`
	Value  int64  `yaml:"value" json:"value"`
}
