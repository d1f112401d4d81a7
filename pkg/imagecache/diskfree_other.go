//go:build !unix

package imagecache

import "math"

// diskFreeSpace は unix 以外のプラットフォームでは常に十分な空きを報告します。
// 空き容量ベースの退避はこれらの環境では発動しません。
func diskFreeSpace(dir string) (uint64, error) {
	return math.MaxUint64, nil
}
