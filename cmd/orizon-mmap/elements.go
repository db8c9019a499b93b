package main

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/orizon-lang/lattice/internal/mmap"
)

// printElements writes a hex dump for byte-sized integers and one element
// per line otherwise.
func printElements(w io.Writer, buf *mmap.Buffer) error {
	switch buf.Elem().String() {
	case "UInt8", "Int8":
		_, err := io.WriteString(w, hex.Dump(buf.Bytes()))
		return err
	case "Bool":
		return printArray[uint8](w, buf)
	case "Int16":
		return printArray[int16](w, buf)
	case "Int32":
		return printArray[int32](w, buf)
	case "Int64":
		return printArray[int64](w, buf)
	case "UInt16":
		return printArray[uint16](w, buf)
	case "UInt32":
		return printArray[uint32](w, buf)
	case "UInt64":
		return printArray[uint64](w, buf)
	case "Float32":
		return printArray[float32](w, buf)
	case "Float64":
		return printArray[float64](w, buf)
	}
	return fmt.Errorf("cannot display elements of %s", buf.Elem())
}

func printArray[T mmap.Element](w io.Writer, buf *mmap.Buffer) error {
	a, err := mmap.NewArray[T](buf)
	if err != nil {
		return err
	}
	for i := 0; i < a.Len(); i++ {
		if _, err := fmt.Fprintf(w, "%d\t%v\n", i, a.At(i)); err != nil {
			return err
		}
	}
	return nil
}

// storeElement writes data, as produced by promotion.ParseLiteral for the
// buffer's element type, at index.
func storeElement(buf *mmap.Buffer, index int, data interface{}) error {
	switch v := data.(type) {
	case bool:
		var b uint8
		if v {
			b = 1
		}
		return setAt(buf, index, b)
	case int8:
		return setAt(buf, index, v)
	case int16:
		return setAt(buf, index, v)
	case int32:
		return setAt(buf, index, v)
	case int64:
		return setAt(buf, index, v)
	case uint8:
		return setAt(buf, index, v)
	case uint16:
		return setAt(buf, index, v)
	case uint32:
		return setAt(buf, index, v)
	case uint64:
		return setAt(buf, index, v)
	case float32:
		return setAt(buf, index, v)
	case float64:
		return setAt(buf, index, v)
	}
	return fmt.Errorf("cannot store %T in %s", data, buf.Elem())
}

func setAt[T mmap.Element](buf *mmap.Buffer, index int, v T) error {
	a, err := mmap.NewArray[T](buf)
	if err != nil {
		return err
	}
	return a.Set(index, v)
}
