package cache

import "github.com/zipix/zipix/imgcodec"

// entry is the store-owned record for one cached decode. The image is
// shared with consumers as an immutable view; only the store mutates
// the bookkeeping around it.
type entry struct {
	key  Key
	img  *imgcodec.Image
	size int64
}

func newEntry(key Key, img *imgcodec.Image) *entry {
	return &entry{key: key, img: img, size: img.EstimatedBytes()}
}
