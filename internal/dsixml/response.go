package dsixml

import (
	"regexp"
	"strings"
	"sync"
)

// Return codes with protocol-level meaning.
const (
	// ReturnCodeBusy is emitted by the terminal client itself (origin
	// "Client") when a previous exchange is still outstanding.
	ReturnCodeBusy = "003002"

	// ReturnCodeSetupRequired means the processor rejected the exchange
	// because the terminal has no (or stale) parameters; remediated by an
	// EMVParamDownload.
	ReturnCodeSetupRequired = "002006"
)

// Envelope is the common slice of every response payload.
type Envelope struct {
	ResponseOrigin string `json:"response_origin"`
	ReturnCode     string `json:"return_code"`
	Status         string `json:"status"`
	TextMessage    string `json:"text_message"`
}

// ErrorResult is the decoded form of a failed response.
type ErrorResult struct {
	Envelope
}

// Amount carries currency values as decimal strings, verbatim from the
// wire. They are never parsed as numbers here; binary floating point cannot
// represent them exactly.
type Amount struct {
	Purchase  string `json:"purchase"`
	Authorize string `json:"authorize"`
}

// SaleResult is the decoded form of an approved EMV sale.
type SaleResult struct {
	Envelope
	AuthCode       string `json:"auth_code"`
	CaptureStatus  string `json:"capture_status"`
	AcctNo         string `json:"acct_no"`
	CardType       string `json:"card_type"`
	CardholderName string `json:"cardholder_name"`
	EntryMethod    string `json:"entry_method"`
	InvoiceNo      string `json:"invoice_no"`
	RefNo          string `json:"ref_no"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	AID            string `json:"aid"`
	TVR            string `json:"tvr"`
	Amount         Amount `json:"amount"`
}

// RecurringSaleResult is a sale result plus the processor's record number
// for the tokenized card.
type RecurringSaleResult struct {
	SaleResult
	RecordNo string `json:"record_no"`
}

// ZeroAuthResult is the decoded form of a zero-amount authorization used
// for card replacement.
type ZeroAuthResult struct {
	Envelope
	AuthCode string `json:"auth_code"`
	AcctNo   string `json:"acct_no"`
	CardType string `json:"card_type"`
	ExpDate  string `json:"exp_date"`
	RecordNo string `json:"record_no"`
	Amount   Amount `json:"amount"`
}

// CardData is the decoded form of a card read without authorization.
type CardData struct {
	Envelope
	AcctNo         string `json:"acct_no"`
	CardType       string `json:"card_type"`
	ExpDate        string `json:"exp_date"`
	CardholderName string `json:"cardholder_name"`
	EntryMethod    string `json:"entry_method"`
}

// ClientVersionResult is the decoded form of the ClientVersion admin reply.
type ClientVersionResult struct {
	Envelope
	Version string `json:"version"`
}

var tagPatterns sync.Map // tag name -> *regexp.Regexp

func tagPattern(tag string) *regexp.Regexp {
	if p, ok := tagPatterns.Load(tag); ok {
		return p.(*regexp.Regexp)
	}
	// (?is): tags are matched case-insensitively and values may span
	// newlines. First non-overlapping occurrence wins.
	p := regexp.MustCompile(`(?is)<` + regexp.QuoteMeta(tag) + `>(.*?)</` + regexp.QuoteMeta(tag) + `>`)
	tagPatterns.Store(tag, p)
	return p
}

// ExtractTag returns the inner text of the first occurrence of the named
// element and whether the element was present at all.
func ExtractTag(payload, tag string) (string, bool) {
	m := tagPattern(tag).FindStringSubmatch(payload)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func text(payload, tag string) string {
	v, _ := ExtractTag(payload, tag)
	return v
}

// amountText defaults a missing amount sub-field to "0.00" so downstream
// formatting never sees an absent value.
func amountText(payload, tag string) string {
	v, ok := ExtractTag(payload, tag)
	if !ok || strings.TrimSpace(v) == "" {
		return "0.00"
	}
	return v
}

func envelope(payload string) Envelope {
	return Envelope{
		ResponseOrigin: text(payload, "ResponseOrigin"),
		ReturnCode:     text(payload, "DSIXReturnCode"),
		Status:         text(payload, "CmdStatus"),
		TextMessage:    text(payload, "TextMessage"),
	}
}

// IsBusy reports whether the payload is the terminal client's
// already-running signal: a same-process reentrancy condition, not a
// decline. Must be evaluated before IsFailed.
func IsBusy(payload string) bool {
	origin, _ := ExtractTag(payload, "ResponseOrigin")
	code, _ := ExtractTag(payload, "DSIXReturnCode")
	return origin == "Client" && code == ReturnCodeBusy
}

// IsFailed reports whether the payload is a failure: either the command
// status says Error or the capture status says Declined. Either predicate
// alone is sufficient.
func IsFailed(payload string) bool {
	if status, _ := ExtractTag(payload, "CmdStatus"); status == "Error" {
		return true
	}
	capture, _ := ExtractTag(payload, "CaptureStatus")
	return capture == "Declined"
}

// DecodeError decodes a failed payload. It returns nil only when the
// payload carries none of the envelope fields, which means there is
// nothing actionable to report.
func DecodeError(payload string) *ErrorResult {
	env := envelope(payload)
	if env.ReturnCode == "" && env.Status == "" && env.TextMessage == "" {
		return nil
	}
	return &ErrorResult{Envelope: env}
}

// DecodeSale decodes a sale response. Missing fields decode to empty
// strings (amounts to "0.00"); partial data still reaches the caller.
func DecodeSale(payload string) *SaleResult {
	return &SaleResult{
		Envelope:       envelope(payload),
		AuthCode:       text(payload, "AuthCode"),
		CaptureStatus:  text(payload, "CaptureStatus"),
		AcctNo:         text(payload, "AcctNo"),
		CardType:       text(payload, "CardType"),
		CardholderName: text(payload, "CardholderName"),
		EntryMethod:    text(payload, "EntryMethod"),
		InvoiceNo:      text(payload, "InvoiceNo"),
		RefNo:          text(payload, "RefNo"),
		Date:           text(payload, "Date"),
		Time:           text(payload, "Time"),
		AID:            text(payload, "AID"),
		TVR:            text(payload, "TVR"),
		Amount: Amount{
			Purchase:  amountText(payload, "Purchase"),
			Authorize: amountText(payload, "Authorize"),
		},
	}
}

// DecodeRecurringSale decodes a recurring sale response.
func DecodeRecurringSale(payload string) *RecurringSaleResult {
	return &RecurringSaleResult{
		SaleResult: *DecodeSale(payload),
		RecordNo:   text(payload, "RecordNo"),
	}
}

// DecodeZeroAuth decodes a card-replacement (zero auth) response.
func DecodeZeroAuth(payload string) *ZeroAuthResult {
	return &ZeroAuthResult{
		Envelope: envelope(payload),
		AuthCode: text(payload, "AuthCode"),
		AcctNo:   text(payload, "AcctNo"),
		CardType: text(payload, "CardType"),
		ExpDate:  text(payload, "ExpDate"),
		RecordNo: text(payload, "RecordNo"),
		Amount: Amount{
			Purchase:  amountText(payload, "Purchase"),
			Authorize: amountText(payload, "Authorize"),
		},
	}
}

// DecodeCardData decodes a card read response.
func DecodeCardData(payload string) *CardData {
	return &CardData{
		Envelope:       envelope(payload),
		AcctNo:         text(payload, "AcctNo"),
		CardType:       text(payload, "CardType"),
		ExpDate:        text(payload, "ExpDate"),
		CardholderName: text(payload, "CardholderName"),
		EntryMethod:    text(payload, "EntryMethod"),
	}
}

// DecodeClientVersion decodes a ClientVersion admin response.
func DecodeClientVersion(payload string) *ClientVersionResult {
	return &ClientVersionResult{
		Envelope: envelope(payload),
		Version:  text(payload, "Version"),
	}
}
