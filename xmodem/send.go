package xmodem

import (
	"bytes"
	"compress/flate"
	"crypto/md5"
	"encoding/hex"
	"io"
	"log"
	"strings"
	"time"
)

// Send transmits data to rw as one XMODEM-1K file. The first block
// (seq=1) is always a 128-byte header carrying name\0<decimal
// length>\0, padded with 0x1A, so the receiver knows the uncompressed
// length and original filename before any payload arrives. If name
// ends in ".lz" the payload itself is then flate-compressed before
// framing. A trailing MD5 digest of the *uncompressed* bytes, encoded
// as 32 lowercase hex characters, is appended to the payload and 0x1A
// padded to the block boundary, so the receiver can verify integrity
// without a separate control channel.
//
// done, if non-nil, cancels the transfer and Send returns an *Error with
// Kind ErrCancelled. Once the receiver's start byte has arrived, Send
// first writes two CAN bytes; a cancel while still waiting for that
// byte writes nothing.
func Send(rw io.ReadWriter, name string, data []byte, done <-chan struct{}, onProgress ProgressFunc) error {
	payload := data
	if strings.HasSuffix(name, ".lz") {
		compressed, err := deflate(data)
		if err != nil {
			return &Error{Kind: ErrIO, Err: err}
		}
		payload = compressed
	}

	sum := md5.Sum(data)
	digest := []byte(hex.EncodeToString(sum[:]))
	framed := append(append([]byte{}, payload...), digest...)

	useCRC, err := awaitStart(rw, done)
	if err != nil {
		return err
	}

	var totalRetries int
	lastReport := time.Time{}

	header := buildHeaderBlock(name, len(data))
	headerRetries, herr := sendBlock(rw, 1, header, useCRC, done)
	totalRetries += headerRetries
	if herr != nil {
		return annotateBlockErr(herr, 0)
	}

	blocks := splitBlocks(framed, longBlockSize)
	total := int64(len(framed))
	var sent int64

	for i, block := range blocks {
		blockNum := byte((i + 2) % 256)
		retries, berr := sendBlock(rw, blockNum, block, useCRC, done)
		totalRetries += retries
		if berr != nil {
			return annotateBlockErr(berr, i+1)
		}
		sent += int64(len(block))
		if onProgress != nil && time.Since(lastReport) >= progressEvery {
			onProgress(Progress{BytesSent: sent, TotalBytes: total, Blocks: i + 1, Retries: totalRetries})
			lastReport = time.Now()
		}
	}

	if onProgress != nil {
		onProgress(Progress{BytesSent: total, TotalBytes: total, Blocks: len(blocks), Retries: totalRetries})
	}

	for retries := 0; ; retries++ {
		if _, werr := rw.Write([]byte{EOT}); werr != nil {
			return &Error{Kind: ErrIO, Err: werr}
		}
		reply, rerr := readByteTimeout(rw, blockTimeout)
		if rerr == nil && reply == ACK {
			return nil
		}
		if retries >= maxRetries {
			log.Printf("xmodem: EOT exhausted %d retries, aborting send", maxRetries)
			return &Error{Kind: ErrTooManyRetries, Err: rerr}
		}
	}
}

// sendBlock writes one packet (blockNum, block) and retries until ACK,
// CAN from the peer, cancellation, or maxRetries is exhausted. It
// returns the number of retries spent.
func sendBlock(rw io.ReadWriter, blockNum byte, block []byte, useCRC bool, done <-chan struct{}) (int, error) {
	retries := 0
	for {
		if cancelled(done) {
			rw.Write([]byte{CAN, CAN})
			return retries, &Error{Kind: ErrCancelled}
		}
		pkt := buildPacket(blockNum, block, useCRC)
		if _, werr := rw.Write(pkt); werr != nil {
			return retries, &Error{Kind: ErrIO, Err: werr}
		}
		reply, rerr := readByteTimeout(rw, blockTimeout)
		if rerr == nil && reply == ACK {
			return retries, nil
		}
		if rerr == nil && reply == CAN {
			return retries, &Error{Kind: ErrCanceledByPeer}
		}
		retries++
		if retries > maxRetries {
			log.Printf("xmodem: block %d exhausted %d retries, aborting send", blockNum, maxRetries)
			rw.Write([]byte{CAN, CAN})
			return retries, &Error{Kind: ErrTooManyRetries}
		}
	}
}

// annotateBlockErr fills in the data-block index (1-based, header
// block reported as 0) on an *Error returned by sendBlock.
func annotateBlockErr(err error, block int) error {
	if e, ok := err.(*Error); ok {
		e.Block = block
		return e
	}
	return err
}

func awaitStart(rw io.ReadWriter, done <-chan struct{}) (useCRC bool, err error) {
	deadline := time.Now().Add(startTimeout)
	for time.Now().Before(deadline) {
		if cancelled(done) {
			return false, &Error{Kind: ErrCancelled}
		}
		b, rerr := readByteTimeout(rw, time.Second)
		if rerr != nil {
			continue
		}
		switch b {
		case C:
			return true, nil
		case NAK:
			return false, nil
		}
	}
	return false, &Error{Kind: ErrTimeout, Err: err}
}

func splitBlocks(data []byte, size int) [][]byte {
	var blocks [][]byte
	for i := 0; i < len(data); i += size {
		end := i + size
		if end > len(data) {
			end = len(data)
		}
		block := make([]byte, size)
		copy(block, data[i:end])
		if end-i < size {
			for j := end - i; j < size; j++ {
				block[j] = padByte
			}
		}
		blocks = append(blocks, block)
	}
	if len(blocks) == 0 {
		blocks = append(blocks, bytes.Repeat([]byte{padByte}, size))
	}
	return blocks
}

func buildPacket(blockNum byte, data []byte, useCRC bool) []byte {
	header := STX
	if len(data) == shortBlockSize {
		header = SOH
	}
	pkt := make([]byte, 0, 3+len(data)+2)
	pkt = append(pkt, header, blockNum, ^blockNum)
	pkt = append(pkt, data...)
	if useCRC {
		crc := crc16xmodem(data)
		pkt = append(pkt, byte(crc>>8), byte(crc))
	} else {
		pkt = append(pkt, checksum8(data))
	}
	return pkt
}

func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func inflate(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	return io.ReadAll(r)
}

func cancelled(done <-chan struct{}) bool {
	if done == nil {
		return false
	}
	select {
	case <-done:
		return true
	default:
		return false
	}
}

func readByteTimeout(rw io.ReadWriter, timeout time.Duration) (byte, error) {
	type deadliner interface {
		SetReadDeadline(time.Time) error
	}
	if d, ok := rw.(deadliner); ok {
		d.SetReadDeadline(time.Now().Add(timeout))
	}
	buf := make([]byte, 1)
	_, err := io.ReadFull(rw, buf)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}
