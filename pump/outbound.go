package pump

import "io"

// pumpOutbound owns the endpoint's read half: it blocks on Read and forwards
// every non-empty chunk, in order, until end of data, a read error, or pump
// shutdown. The channel close is the only signal the bridge loop gets.
func pumpOutbound(r io.Reader, chunks chan<- []byte, done <-chan struct{}) {
	defer close(chunks)

	buffer := make([]byte, TransferBufferSize)
	for {
		n, err := r.Read(buffer)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buffer[:n])
			select {
			case chunks <- chunk:
			case <-done:
				return
			}
		}
		if err != nil {
			return
		}
	}
}
