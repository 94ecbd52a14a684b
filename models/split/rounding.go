package split

import "math/big"

// roundHalfUp rounds the non-negative ratio num/den to the nearest integer,
// with exact halves rounding up: floor((2*num + den) / (2*den)). Every
// weighted strategy goes through this one helper.
func roundHalfUp(num, den *big.Int) int64 {
	twoNum := new(big.Int).Lsh(num, 1)
	twoDen := new(big.Int).Lsh(den, 1)
	q := new(big.Int).Add(twoNum, den)
	return q.Quo(q, twoDen).Int64()
}

// proportion returns round(total * weightNum / weightDen).
func proportion(total int64, weightNum, weightDen *big.Int) int64 {
	num := new(big.Int).Mul(big.NewInt(total), weightNum)
	return roundHalfUp(num, weightDen)
}
