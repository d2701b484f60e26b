package utils

import (
	"bytes"
	"sync"

	"github.com/bytedance/sonic"

	"github.com/saiset-co/sai-travel/types"
)

type JSONBufferPool struct {
	pool sync.Pool
}

func (p *JSONBufferPool) Get() *bytes.Buffer {
	if buf := p.pool.Get(); buf != nil {
		return buf.(*bytes.Buffer)
	}
	return bytes.NewBuffer(make([]byte, 0, 4096))
}

func (p *JSONBufferPool) Put(buf *bytes.Buffer) {
	buf.Reset()
	if buf.Cap() < 64*1024 {
		p.pool.Put(buf)
	}
}

var jsonPool = &JSONBufferPool{}

func Marshal(data interface{}) ([]byte, error) {
	buf := jsonPool.Get()
	defer jsonPool.Put(buf)

	if err := sonic.ConfigStd.NewEncoder(buf).Encode(data); err != nil {
		return nil, err
	}

	// Encode appends a newline.
	out := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
	result := make([]byte, len(out))
	copy(result, out)
	return result, nil
}

// Unmarshal decodes an upstream payload. Decoding errors are reported as
// parse failures so providers can treat them like any other outage.
func Unmarshal[T any](data []byte, target *T) error {
	if err := sonic.ConfigDefault.Unmarshal(data, target); err != nil {
		return types.WrapError(types.ErrParseFailure, err.Error())
	}
	return nil
}

func UnmarshalConfig[T any](config interface{}, target *T) error {
	if config == nil {
		return types.ErrConfigIsNil
	}

	if typed, ok := config.(*T); ok {
		*target = *typed
		return nil
	}

	configBytes, err := sonic.ConfigDefault.Marshal(config)
	if err != nil {
		return err
	}

	return sonic.ConfigDefault.Unmarshal(configBytes, target)
}
