//go:build unix

package imagecache

import "syscall"

// diskFreeSpace はキャッシュディレクトリのあるボリュームの空きバイト数を返します。
func diskFreeSpace(dir string) (uint64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(dir, &stat); err != nil {
		return 0, err
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}
