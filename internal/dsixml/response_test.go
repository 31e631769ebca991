package dsixml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTagCaseInsensitiveAcrossNewlines(t *testing.T) {
	payload := "<tstream>\n<CMDSTATUS>\nSuccess\n</cmdstatus>\n</tstream>"

	v, ok := ExtractTag(payload, "CmdStatus")
	require.True(t, ok)
	assert.Equal(t, "\nSuccess\n", v)
}

func TestExtractTagFirstOccurrenceWins(t *testing.T) {
	payload := "<TextMessage>first</TextMessage><TextMessage>second</TextMessage>"
	v, ok := ExtractTag(payload, "TextMessage")
	require.True(t, ok)
	assert.Equal(t, "first", v)
}

func TestExtractTagAbsent(t *testing.T) {
	_, ok := ExtractTag("<TStream></TStream>", "AuthCode")
	assert.False(t, ok)
}

func TestBusyRequiresClientOriginAndCode(t *testing.T) {
	busy := `<ResponseOrigin>Client</ResponseOrigin><DSIXReturnCode>003002</DSIXReturnCode>`
	assert.True(t, IsBusy(busy))

	// Other tag content is irrelevant.
	assert.True(t, IsBusy(busy+`<CmdStatus>Error</CmdStatus><CaptureStatus>Declined</CaptureStatus>`))

	assert.False(t, IsBusy(`<ResponseOrigin>Server</ResponseOrigin><DSIXReturnCode>003002</DSIXReturnCode>`))
	assert.False(t, IsBusy(`<ResponseOrigin>Client</ResponseOrigin><DSIXReturnCode>100201</DSIXReturnCode>`))
}

func TestFailedEitherPredicateSuffices(t *testing.T) {
	// Status wins independently of the capture status.
	assert.True(t, IsFailed(`<CmdStatus>Error</CmdStatus><CaptureStatus>Approved</CaptureStatus>`))
	assert.True(t, IsFailed(`<CmdStatus>Success</CmdStatus><CaptureStatus>Declined</CaptureStatus>`))
	assert.True(t, IsFailed(`<CmdStatus>Error</CmdStatus>`))

	assert.False(t, IsFailed(`<CmdStatus>Success</CmdStatus><CaptureStatus>Captured</CaptureStatus>`))
	assert.False(t, IsFailed(`<TStream></TStream>`))
}

func TestDecodeSaleDefaultsMissingPurchase(t *testing.T) {
	res := DecodeSale(`<TStream><TranResponse>
		<AuthCode>ABC123</AuthCode>
		<CardType>VISA</CardType>
	</TranResponse></TStream>`)

	require.NotNil(t, res)
	assert.Equal(t, "ABC123", res.AuthCode)
	assert.Equal(t, "VISA", res.CardType)
	assert.Equal(t, "0.00", res.Amount.Purchase)
	assert.Equal(t, "0.00", res.Amount.Authorize)
	// Missing non-amount fields default to empty strings.
	assert.Equal(t, "", res.CardholderName)
}

func TestDecodeSaleVerbatimFields(t *testing.T) {
	res := DecodeSale(`<TStream><TranResponse>
		<ResponseOrigin>Server</ResponseOrigin>
		<DSIXReturnCode>000000</DSIXReturnCode>
		<CmdStatus>Approved</CmdStatus>
		<TextMessage>APPROVED</TextMessage>
		<AuthCode>AB12</AuthCode>
		<CaptureStatus>Captured</CaptureStatus>
		<AcctNo>************1234</AcctNo>
		<CardType>M/C</CardType>
		<CardholderName>DOE/JANE</CardholderName>
		<EntryMethod>CHIP</EntryMethod>
		<InvoiceNo>op01-1700000000000</InvoiceNo>
		<RefNo>op01-1700000000001</RefNo>
		<Date>08/29/2026</Date>
		<Time>14:02:11</Time>
		<AID>A0000000041010</AID>
		<TVR>0000048000</TVR>
		<Amount><Purchase>12.50</Purchase><Authorize>12.50</Authorize></Amount>
	</TranResponse></TStream>`)

	require.NotNil(t, res)
	assert.Equal(t, "Server", res.ResponseOrigin)
	assert.Equal(t, "000000", res.ReturnCode)
	assert.Equal(t, "APPROVED", res.TextMessage)
	assert.Equal(t, "DOE/JANE", res.CardholderName)
	assert.Equal(t, "CHIP", res.EntryMethod)
	assert.Equal(t, "A0000000041010", res.AID)
	assert.Equal(t, "0000048000", res.TVR)
	assert.Equal(t, "12.50", res.Amount.Purchase)
}

func TestDecodeErrorNilWithoutEnvelope(t *testing.T) {
	assert.Nil(t, DecodeError(`<TStream><TranResponse><CaptureStatus>Declined</CaptureStatus></TranResponse></TStream>`))
	assert.Nil(t, DecodeError(`not a payload at all`))
}

func TestDecodeErrorEnvelope(t *testing.T) {
	res := DecodeError(`<TStream><CmdResponse>
		<ResponseOrigin>Server</ResponseOrigin>
		<DSIXReturnCode>100201</DSIXReturnCode>
		<CmdStatus>Error</CmdStatus>
		<TextMessage>DECLINED</TextMessage>
	</CmdResponse></TStream>`)

	require.NotNil(t, res)
	assert.Equal(t, "100201", res.ReturnCode)
	assert.Equal(t, "Error", res.Status)
	assert.Equal(t, "DECLINED", res.TextMessage)
}

func TestDecodeRecurringSaleCarriesRecordNo(t *testing.T) {
	res := DecodeRecurringSale(`<RecordNo>REC-7</RecordNo><AuthCode>Z9</AuthCode>`)
	require.NotNil(t, res)
	assert.Equal(t, "REC-7", res.RecordNo)
	assert.Equal(t, "Z9", res.AuthCode)
}

func TestDecodeZeroAuthDefaultsAmounts(t *testing.T) {
	res := DecodeZeroAuth(`<AuthCode>OK</AuthCode><RecordNo>REC-8</RecordNo>`)
	require.NotNil(t, res)
	assert.Equal(t, "0.00", res.Amount.Purchase)
	assert.Equal(t, "0.00", res.Amount.Authorize)
	assert.Equal(t, "REC-8", res.RecordNo)
}

func TestDecodeCardData(t *testing.T) {
	res := DecodeCardData(`<AcctNo>************8888</AcctNo><CardType>GIFT</CardType><ExpDate>1230</ExpDate>`)
	require.NotNil(t, res)
	assert.Equal(t, "GIFT", res.CardType)
	assert.Equal(t, "1230", res.ExpDate)
}

func TestDecodeClientVersion(t *testing.T) {
	res := DecodeClientVersion(`<CmdStatus>Success</CmdStatus><Version>1.52.07</Version>`)
	require.NotNil(t, res)
	assert.Equal(t, "1.52.07", res.Version)
}

func TestWhitespaceOnlyAmountDefaults(t *testing.T) {
	res := DecodeSale(`<Amount><Purchase>  </Purchase></Amount>`)
	require.NotNil(t, res)
	assert.Equal(t, "0.00", res.Amount.Purchase)
}
