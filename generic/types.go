/*
Package generic provides the domain-agnostic building blocks of the bot.

PURPOSE:
  Everything in here is independent of what the bot tracks. Leave quotas,
  attendance sessions and the daily schedule all need the same primitives:
  precise half-day arithmetic, calendar-day conversion, a tagged document
  store, short-lived caches and per-key serialization of read-modify-write
  cycles.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A quantity with a unit (1.5 days, 30 minutes)
  - Identifiers: Type-safe user, room and message ids

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal so 0.5-day steps never drift
  2. Type Safety: Strong typing for ids prevents mixing users and messages
  3. Purity: No function in this package reads global state or the clock

SEE ALSO:
  - time.go: Calendar-day conversion and weekend-aware walking
  - store.go: Tagged document persistence interface
  - cache.go: TTL cache used for advisory in-memory pointers
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity with unit
// =============================================================================

type Amount struct {
	Value decimal.Decimal `json:"value"`
	Unit  Unit            `json:"unit"`
}

type Unit string

const (
	UnitDays    Unit = "days"
	UnitMinutes Unit = "minutes"
)

func NewAmount(value float64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Unit: unit}
}

func NewAmountFromInt(value int, unit Unit) Amount {
	return Amount{Value: decimal.NewFromInt(int64(value)), Unit: unit}
}

func NewAmountFromDecimal(value decimal.Decimal, unit Unit) Amount {
	return Amount{Value: value, Unit: unit}
}

func (a Amount) Add(b Amount) Amount          { return Amount{Value: a.Value.Add(b.Value), Unit: a.Unit} }
func (a Amount) Sub(b Amount) Amount          { return Amount{Value: a.Value.Sub(b.Value), Unit: a.Unit} }
func (a Amount) Mul(s decimal.Decimal) Amount { return Amount{Value: a.Value.Mul(s), Unit: a.Unit} }
func (a Amount) Neg() Amount                  { return Amount{Value: a.Value.Neg(), Unit: a.Unit} }
func (a Amount) IsNegative() bool             { return a.Value.IsNegative() }
func (a Amount) IsZero() bool                 { return a.Value.IsZero() }
func (a Amount) LessThan(b Amount) bool       { return a.Value.LessThan(b.Value) }

// Float returns the value as float64 for display and JSON responses.
func (a Amount) Float() float64 {
	f, _ := a.Value.Float64()
	return f
}

func (a Amount) String() string {
	return a.Value.String() + " " + string(a.Unit)
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type RoomID string
type MessageID string
