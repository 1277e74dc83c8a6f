package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure.
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindAuthorization
	KindLiquidity
	KindSlippage
	KindTransfer
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindLiquidity:
		return "liquidity"
	case KindSlippage:
		return "slippage"
	case KindTransfer:
		return "transfer"
	default:
		return "unknown"
	}
}

// Reason codes.
const (
	CodeInvalidAmount         = "IA"
	CodeInsufficientShares    = "IS"
	CodeOnlyOwner             = "OO"
	CodeTransferFailed        = "TF"
	CodeInsufficientLiquidity = "IL"
	CodeSlippage              = "SL"
	CodeMinOut                = "MO"
	CodeTWAPPending           = "TP"
	CodeNoSwap                = "NS"
	CodeFunctionNotFound      = "FN"
	CodeInvalidParameter      = "IP"
	CodeZeroValue             = "ZV"
	CodePriceFeed             = "PF"
)

// Error is a reason-coded failure.
type Error struct {
	Kind ErrorKind
	Code string
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s error [%s]", e.Kind, e.Code)
	}
	return fmt.Sprintf("%s error [%s]: %s", e.Kind, e.Code, e.Msg)
}

// Is matches kind sentinels and errors carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code == "" {
		return t.Kind == e.Kind
	}
	return t.Kind == e.Kind && t.Code == e.Code
}

// Kind sentinels for errors.Is.
var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrAuthorization = &Error{Kind: KindAuthorization}
	ErrLiquidity     = &Error{Kind: KindLiquidity}
	ErrSlippage      = &Error{Kind: KindSlippage}
	ErrTransfer      = &Error{Kind: KindTransfer}
)

// NewError builds a reason-coded error.
func NewError(kind ErrorKind, code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Msg: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the reason code from err, or "" when none is present.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
