package dsixml

import (
	"fmt"
	"time"
)

// Protocol constants fixed by the terminal firmware. The sequence number is
// a placeholder the PIN pad echoes back unchanged; the com port is always 1
// for IP-attached devices.
const (
	SequenceNo = "0010010010"
	ComPort    = "1"
)

// TranCodes understood by the terminal.
const (
	TranCodePadReset      = "EMVPadReset"
	TranCodeSale          = "EMVSale"
	TranCodeZeroAuth      = "EMVZeroAuth"
	TranCodeCollectCard   = "CollectCardData"
	TranCodeParamDownload = "EMVParamDownload"
	TranCodeVersion       = "ClientVersion"
)

// TerminalConfig carries the merchant/device identity the request builder
// renders into every payload. All fields are validated upstream.
type TerminalConfig struct {
	MerchantID       string
	OnlineMerchantID string
	Sandbox          bool
	SecureDevice     string
	OperatorID       string
	POSPackageID     string
	PinPadAddress    string
	PinPadPort       string
}

// merchant returns the identity the payload should carry: the certification
// merchant in sandbox mode, the live one otherwise.
func (c TerminalConfig) merchant() string {
	if c.Sandbox {
		return c.MerchantID
	}
	return c.OnlineMerchantID
}

// NewReference mints a per-call unique reference of the form
// {operatorID}-{epochMillis}. Sale-like requests call it twice so that the
// invoice and reference numbers are independent correlation handles.
func NewReference(operatorID string) string {
	return fmt.Sprintf("%s-%d", operatorID, time.Now().UnixMilli())
}

func deviceFields(c TerminalConfig) string {
	return fmt.Sprintf("<SecureDevice>%s</SecureDevice>"+
		"<PinPadIpAddress>%s</PinPadIpAddress>"+
		"<PinPadIpPort>%s</PinPadIpPort>"+
		"<ComPort>%s</ComPort>",
		c.SecureDevice, c.PinPadAddress, c.PinPadPort, ComPort)
}

// BuildPadReset renders the reset request that returns the device to its
// idle prompt. Sent before and after every card-present flow.
func BuildPadReset(c TerminalConfig) string {
	return fmt.Sprintf("<TStream><Transaction>"+
		"<MerchantID>%s</MerchantID>"+
		"<TranCode>%s</TranCode>"+
		"%s"+
		"<SequenceNo>%s</SequenceNo>"+
		"<OperatorID>%s</OperatorID>"+
		"</Transaction></TStream>",
		c.merchant(), TranCodePadReset, deviceFields(c), SequenceNo, c.OperatorID)
}

// BuildSale renders an EMV sale for the given decimal-string amount. The
// amount is rendered verbatim; this layer never parses currency values.
func BuildSale(c TerminalConfig, amount string) string {
	return buildAmountRequest(c, TranCodeSale, "", amount)
}

// BuildRecurringSale renders a sale that additionally requests a record
// number so the processor can tokenize the card for recurring billing.
func BuildRecurringSale(c TerminalConfig, amount string) string {
	return buildAmountRequest(c, TranCodeSale,
		"<Frequency>Recurring</Frequency><RecordNo>RecordNumberRequested</RecordNo>", amount)
}

// BuildZeroAuth renders a zero-amount authorization used to replace the
// card on file for a recurring agreement without charging it.
func BuildZeroAuth(c TerminalConfig) string {
	return buildAmountRequest(c, TranCodeZeroAuth,
		"<Frequency>Recurring</Frequency><RecordNo>RecordNumberRequested</RecordNo>", "0.00")
}

func buildAmountRequest(c TerminalConfig, tranCode, extra, amount string) string {
	return fmt.Sprintf("<TStream><Transaction>"+
		"<MerchantID>%s</MerchantID>"+
		"<TranCode>%s</TranCode>"+
		"%s"+
		"<InvoiceNo>%s</InvoiceNo>"+
		"<RefNo>%s</RefNo>"+
		"%s"+
		"<Amount><Purchase>%s</Purchase></Amount>"+
		"<SequenceNo>%s</SequenceNo>"+
		"<OperatorID>%s</OperatorID>"+
		"<POSPackageID>%s</POSPackageID>"+
		"</Transaction></TStream>",
		c.merchant(), tranCode, extra,
		NewReference(c.OperatorID), NewReference(c.OperatorID),
		deviceFields(c), amount, SequenceNo, c.OperatorID, c.POSPackageID)
}

// BuildCollectCardData renders the request that has the PIN pad read a card
// and return account data without running an authorization.
func BuildCollectCardData(c TerminalConfig) string {
	return fmt.Sprintf("<TStream><Transaction>"+
		"<MerchantID>%s</MerchantID>"+
		"<TranCode>%s</TranCode>"+
		"%s"+
		"<SequenceNo>%s</SequenceNo>"+
		"<OperatorID>%s</OperatorID>"+
		"</Transaction></TStream>",
		c.merchant(), TranCodeCollectCard, deviceFields(c), SequenceNo, c.OperatorID)
}

// BuildParamDownload renders the admin request that pulls processor
// parameters down to the terminal.
func BuildParamDownload(c TerminalConfig) string {
	return fmt.Sprintf("<TStream><Admin>"+
		"<MerchantID>%s</MerchantID>"+
		"<TranCode>%s</TranCode>"+
		"%s"+
		"<SequenceNo>%s</SequenceNo>"+
		"<OperatorID>%s</OperatorID>"+
		"</Admin></TStream>",
		c.merchant(), TranCodeParamDownload, deviceFields(c), SequenceNo, c.OperatorID)
}

// BuildClientVersion renders the admin request for the terminal client's
// version string.
func BuildClientVersion(c TerminalConfig) string {
	return fmt.Sprintf("<TStream><Admin>"+
		"<MerchantID>%s</MerchantID>"+
		"<TranCode>%s</TranCode>"+
		"<SequenceNo>%s</SequenceNo>"+
		"<OperatorID>%s</OperatorID>"+
		"</Admin></TStream>",
		c.merchant(), TranCodeVersion, SequenceNo, c.OperatorID)
}
