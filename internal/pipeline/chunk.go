package pipeline

// chunkSymbols partitions symbols into chunks of at most size,
// preserving input order. Every symbol lands in exactly one chunk;
// the last chunk may be shorter. A size below 1 yields one chunk with
// the whole set.
func chunkSymbols(symbols []string, size int) [][]string {
	if len(symbols) == 0 {
		return nil
	}
	if size < 1 {
		size = len(symbols)
	}
	chunks := make([][]string, 0, (len(symbols)+size-1)/size)
	for lo := 0; lo < len(symbols); lo += size {
		hi := lo + size
		if hi > len(symbols) {
			hi = len(symbols)
		}
		chunks = append(chunks, symbols[lo:hi])
	}
	return chunks
}
