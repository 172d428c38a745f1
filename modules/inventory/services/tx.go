package services

import (
	"github.com/stockledger/stockledger/pkg/composables"
)

// Swapped in tests so services run without a pool.
var (
	inTxFn        = composables.InTx
	inSavepointFn = composables.InSavepoint
)
