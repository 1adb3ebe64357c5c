package state

var (
	kvNamespace = []byte("kv/")

	accountPrefix         = []byte("account/")
	contentPrefix         = []byte("creator/content/")
	creatorIndexPrefix    = []byte("creator/index/")
	accessBalanceFormat   = "creator/access/%d/%x"
	accessUnitSequenceKey = []byte("creator/access/sequence")
	loyaltyRecordFormat   = "loyalty/record/%x/%x/%d"
	loyaltyLedgerFormat   = "loyalty/ledger/%x/%d"
	loyaltyCursorPrefix   = []byte("loyalty/cursor/")
	feeTotalsPrefix       = []byte("fees/totals/")
	genesisMarkerKey      = []byte("genesis/applied")
)

func prefixed(prefix []byte, id []byte) []byte {
	out := make([]byte, 0, len(prefix)+len(id))
	out = append(out, prefix...)
	return append(out, id...)
}
