package provider

import (
	"strings"

	"github.com/rs/zerolog/log"
)

// cryptoCurrencies always route to the crypto backend regardless of region
var cryptoCurrencies = map[string]bool{
	"BTC":  true,
	"ETH":  true,
	"USDT": true,
	"USDC": true,
	"SOL":  true,
	"LTC":  true,
	"DOGE": true,
	"XRP":  true,
	"TRX":  true,
	"BNB":  true,
}

// regionalCurrencies resolve to an exact regional adapter
var regionalCurrencies = map[string]string{
	"NGN": NamePaystack,
	"GHS": NamePaystack,
	"ZAR": NamePaystack,
	"KES": NamePaystack,
}

// majorCurrencies resolve to the majors adapter before the fallback applies
var majorCurrencies = map[string]bool{
	"USD": true,
	"EUR": true,
	"GBP": true,
}

// Registry holds stateless adapter instances keyed by name, resolved once at
// service construction time.
type Registry struct {
	adapters map[string]Adapter
	crypto   Adapter
	fallback Adapter
}

// NewRegistry builds a registry from the given adapters. cryptoBackend picks
// which adapter serves crypto payments; an unrecognized value falls back to
// NOWPayments with a warning rather than erroring.
func NewRegistry(cryptoBackend string, adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Name()] = a
	}

	switch cryptoBackend {
	case NameNowPayments, "":
		r.crypto = r.adapters[NameNowPayments]
	case NameCoinbase:
		r.crypto = r.adapters[NameCoinbase]
	default:
		log.Warn().
			Str("crypto_provider", cryptoBackend).
			Msg("unknown crypto provider configured, falling back to nowpayments")
		r.crypto = r.adapters[NameNowPayments]
	}

	r.fallback = r.adapters[NameFlutterwave]
	return r
}

// SelectForPayment chooses the adapter for a new payment. Crypto currencies
// and the explicit crypto flag always select the configured crypto backend.
// Fiat resolves by three-tier precedence: regional match, majors, then the
// catch-all fallback. Every fiat currency resolves to some adapter.
func (r *Registry) SelectForPayment(currency, region string, isCrypto bool) Adapter {
	currency = strings.ToUpper(currency)

	if isCrypto || cryptoCurrencies[currency] {
		return r.crypto
	}

	if name, ok := regionalCurrencies[currency]; ok {
		if a, ok := r.adapters[name]; ok {
			return a
		}
	}

	if majorCurrencies[currency] {
		if a, ok := r.adapters[NameFlutterwave]; ok {
			return a
		}
	}

	return r.fallback
}

// ByName re-resolves an adapter from a persisted provider name for
// verification or webhook handling.
func (r *Registry) ByName(name string) (Adapter, error) {
	a, ok := r.adapters[strings.ToLower(name)]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return a, nil
}
