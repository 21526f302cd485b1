// Command libmcbrowse builds mcbrowse as a C shared library:
//
//	go build -buildmode=c-shared -o libmcbrowse.so ./cmd/libmcbrowse
//
// The library exports two functions. mcbrowse_call takes a NUL-terminated
// JSON request and returns a NUL-terminated JSON response (see package
// bridge for the protocol); the caller releases the response with
// mcbrowse_free. All calls share one bridge, so handles stay valid between
// calls until they are released.
package main

/*
#include <stdlib.h>
*/
import "C"

import (
	"sync"
	"unsafe"

	"github.com/tanaylab/mcbrowse/pkg/bridge"
)

var (
	once   sync.Once
	shared *bridge.Bridge
)

func instance() *bridge.Bridge {
	once.Do(func() { shared = bridge.New() })
	return shared
}

//export mcbrowse_call
func mcbrowse_call(request *C.char) *C.char {
	resp := instance().Call([]byte(C.GoString(request)))
	return C.CString(string(resp))
}

//export mcbrowse_free
func mcbrowse_free(p *C.char) {
	C.free(unsafe.Pointer(p))
}

func main() {}
