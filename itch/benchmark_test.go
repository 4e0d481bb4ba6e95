package itch

import "testing"

func BenchmarkWalk_AddOrder(b *testing.B) {
	data := frame(MessageTypeAddOrder, addOrderPayload(1, 'B', 100, "INTC    ", 500000))
	h := &DefaultHandler{}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		Walk(data, h)
	}
	b.SetBytes(int64(len(data)))
}

func BenchmarkWalk_Mixed(b *testing.B) {
	var data []byte
	data = append(data, frame(MessageTypeAddOrder, addOrderPayload(1, 'B', 100, "INTC    ", 500000))...)

	execPayload := make([]byte, minPayloadOrderExecuted)
	putUint64(execPayload[10:18], 1)
	putUint32(execPayload[18:22], 50)
	data = append(data, frame(MessageTypeOrderExecuted, execPayload)...)

	delPayload := make([]byte, minPayloadOrderDelete)
	putUint64(delPayload[10:18], 1)
	data = append(data, frame(MessageTypeOrderDelete, delPayload)...)

	h := &DefaultHandler{}
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		Walk(data, h)
	}
	b.SetBytes(int64(len(data)))
}

func BenchmarkReadUint48BE(b *testing.B) {
	data := []byte{0x00, 0x00, 0x01, 0x00, 0x00, 0x64}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ReadTimestampBE(data)
	}
}

func BenchmarkReadUint64BE(b *testing.B) {
	data := []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x64}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ReadUint64BE(data)
	}
}
