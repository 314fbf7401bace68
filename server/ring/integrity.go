// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package ring

// MinRingSize is the smallest ring. A single order cannot trade with itself.
const MinRingSize = 2

// CheckSize verifies MinRingSize <= n <= maxRingSize.
func CheckSize(n, maxRingSize int) error {
	if n < MinRingSize || n > maxRingSize {
		return newError(ErrRingSizeOutOfBounds, "ring size %d not in [%d, %d]", n, MinRingSize, maxRingSize)
	}
	return nil
}

// CheckShape verifies that every per-order array of the submission has one
// entry per order, that every argument tuple has the expected length, and
// that the signature arrays carry the extra miner signature.
func CheckShape(sub *Submission) error {
	n := sub.Size()
	switch {
	case len(sub.UintArgs) != n:
		return newError(ErrShapeMismatch, "%d uint argument tuples for %d orders", len(sub.UintArgs), n)
	case len(sub.Uint8Args) != n:
		return newError(ErrShapeMismatch, "%d uint8 argument tuples for %d orders", len(sub.Uint8Args), n)
	case len(sub.BuyCapped) != n:
		return newError(ErrShapeMismatch, "%d buy flags for %d orders", len(sub.BuyCapped), n)
	case len(sub.V) != n+1 || len(sub.R) != n+1 || len(sub.S) != n+1:
		return newError(ErrShapeMismatch, "signature arrays of length (%d, %d, %d) for %d orders",
			len(sub.V), len(sub.R), len(sub.S), n)
	}
	for i := 0; i < n; i++ {
		if l := len(sub.UintArgs[i]); l != numUintArgs && l != maxNumUintArgs {
			return newError(ErrShapeMismatch, "order %d has %d uint arguments", i, l)
		}
		if l := len(sub.Uint8Args[i]); l != numUint8Args {
			return newError(ErrShapeMismatch, "order %d has %d uint8 arguments", i, l)
		}
	}
	return nil
}

// CheckSubrings fails if two orders sell the same asset. Such a ring contains
// a smaller ring that should have been submitted on its own.
func CheckSubrings(r *Ring) error {
	for i := 0; i < len(r.Orders)-1; i++ {
		for j := i + 1; j < len(r.Orders); j++ {
			if r.Orders[i].Order.SellAsset == r.Orders[j].Order.SellAsset {
				return newError(ErrSubringDetected, "orders %d and %d both sell %s",
					i, j, r.Orders[i].Order.SellAsset.Hex())
			}
		}
	}
	return nil
}
