// Package service implements the marketplace core: catalog import,
// basket management and the order lifecycle. Functions operate on an
// injected gorm handle so they run against the global connection in
// handlers and against embedded databases in tests.
package service

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrNoBasket reports confirmation without an in-progress basket.
	ErrNoBasket = errors.New("no basket to confirm")
	// ErrContactRequired reports confirmation without any delivery contact.
	ErrContactRequired = errors.New("delivery contact is required")
	// ErrContactNotFound reports a contact id not owned by the caller.
	ErrContactNotFound = errors.New("contact not found")
	// ErrOrderNotFound reports an unknown or foreign order id.
	ErrOrderNotFound = errors.New("order not found")
	// ErrShopNotFound reports an unknown or foreign shop.
	ErrShopNotFound = errors.New("shop not found")
	// ErrUnknownStatus reports a status value outside the lifecycle.
	ErrUnknownStatus = errors.New("unknown order status")
)

// FieldErrors carries validation failures keyed by field name
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(e))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return strings.Join(parts, "; ")
}

// ItemErrors carries per-item basket validation failures keyed by the
// item's position in the request payload
type ItemErrors map[int]string

func (e ItemErrors) Error() string {
	keys := make([]int, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	parts := make([]string, 0, len(e))
	for _, k := range keys {
		parts = append(parts, "item "+strconv.Itoa(k)+": "+e[k])
	}
	return strings.Join(parts, "; ")
}

// TransitionError reports a status change outside the fixed lifecycle graph
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot change order status from %q to %q", e.From, e.To)
}

// StockError reports a confirmation that would drive a listing negative.
// The whole transition is rolled back when it occurs.
type StockError struct {
	ProductInfoID uint
	Requested     uint
	Available     uint
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for listing %d: only %d available, %d requested",
		e.ProductInfoID, e.Available, e.Requested)
}
