package util

import (
	"bytes"
	"sync"
)

var bufferPool = sync.Pool{
	New: func() interface{} { return bytes.NewBuffer(make([]byte, 0, 256)) },
}

func GetBuffer() *bytes.Buffer {
	return bufferPool.Get().(*bytes.Buffer)
}

func PutBuffer(p *bytes.Buffer) {
	p.Reset()
	bufferPool.Put(p)
}
