package xmodem

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"log"
	"strings"
	"time"
)

// Receive reads one XMODEM-1K file from rw. The first block (seq=1) is
// always the 128-byte name/length header written by Send; the blocks
// after that carry the payload, which ends in a 32-character hex MD5
// trailer computed over the uncompressed bytes. Receive verifies the
// trailer and returns the (decompressed, if name ends in ".lz")
// payload.
func Receive(rw io.ReadWriter, name string, done <-chan struct{}, onProgress ProgressFunc) ([]byte, error) {
	useCRC := true
	startByte := byte(C)
	if _, err := rw.Write([]byte{startByte}); err != nil {
		return nil, &Error{Kind: ErrIO, Err: err}
	}

	var out []byte
	expectBlock := byte(1)
	headerLen := -1
	lastReport := time.Time{}
	var totalRetries int

	for {
		if cancelled(done) {
			rw.Write([]byte{CAN, CAN})
			return nil, &Error{Kind: ErrCancelled}
		}
		header, err := readByteTimeout(rw, blockTimeout)
		if err != nil {
			totalRetries++
			if totalRetries > maxRetries {
				log.Printf("xmodem: exhausted %d retries waiting for a block header, aborting receive", maxRetries)
				return nil, &Error{Kind: ErrTimeout, Err: err}
			}
			retryStart(rw, useCRC)
			continue
		}
		if header == EOT {
			rw.Write([]byte{ACK})
			break
		}
		if header == CAN {
			return nil, &Error{Kind: ErrCanceledByPeer}
		}
		if header != SOH && header != STX {
			totalRetries++
			nakOrCancel(rw, &totalRetries)
			continue
		}
		size := longBlockSize
		if header == SOH {
			size = shortBlockSize
		}
		blockNum, err1 := readByteTimeout(rw, blockTimeout)
		compNum, err2 := readByteTimeout(rw, blockTimeout)
		data := make([]byte, size)
		_, err3 := io.ReadFull(rw, data)
		crcLen := 1
		if useCRC {
			crcLen = 2
		}
		crcBytes := make([]byte, crcLen)
		_, err4 := io.ReadFull(rw, crcBytes)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || blockNum != ^compNum {
			totalRetries++
			nakOrCancel(rw, &totalRetries)
			continue
		}
		if !verifyChecksum(data, crcBytes, useCRC) {
			totalRetries++
			nakOrCancel(rw, &totalRetries)
			continue
		}
		if blockNum != expectBlock {
			// duplicate retransmit of the previous block: ack and ignore.
			if blockNum == expectBlock-1 {
				rw.Write([]byte{ACK})
				continue
			}
			return nil, &Error{Kind: ErrProtocol, Block: int(blockNum)}
		}
		if expectBlock == 1 {
			_, hlen, herr := parseHeaderBlock(data)
			if herr != nil {
				return nil, herr
			}
			headerLen = hlen
			expectBlock++
			rw.Write([]byte{ACK})
			continue
		}
		out = append(out, data...)
		expectBlock++
		rw.Write([]byte{ACK})
		if onProgress != nil && time.Since(lastReport) >= progressEvery {
			onProgress(Progress{BytesSent: int64(len(out)), Blocks: int(expectBlock) - 1, Retries: totalRetries})
			lastReport = time.Now()
		}
	}

	if headerLen < 0 {
		return nil, &Error{Kind: ErrProtocol, Err: io.ErrUnexpectedEOF}
	}
	if len(out) < hexDigestLen {
		return nil, &Error{Kind: ErrProtocol, Err: io.ErrUnexpectedEOF}
	}
	trimmed := trimPadding(out)
	if len(trimmed) < hexDigestLen {
		return nil, &Error{Kind: ErrProtocol, Err: io.ErrUnexpectedEOF}
	}
	wirePayload := trimmed[:len(trimmed)-hexDigestLen]
	digestHex := string(trimmed[len(trimmed)-hexDigestLen:])
	trailer, err := hex.DecodeString(digestHex)
	if err != nil {
		return nil, &Error{Kind: ErrMD5Mismatch, Err: err}
	}

	payload := wirePayload
	if strings.HasSuffix(name, ".lz") {
		inflated, err := inflate(wirePayload)
		if err != nil {
			return nil, &Error{Kind: ErrIO, Err: err}
		}
		payload = inflated
	}
	sum := md5.Sum(payload)
	if string(sum[:]) != string(trailer) {
		return nil, &Error{Kind: ErrMD5Mismatch}
	}
	if headerLen != len(payload) {
		return nil, &Error{Kind: ErrProtocol}
	}
	return payload, nil
}

func retryStart(rw io.ReadWriter, useCRC bool) {
	b := byte(NAK)
	if useCRC {
		b = C
	}
	rw.Write([]byte{b})
}

func nakOrCancel(rw io.ReadWriter, retries *int) {
	if *retries > maxRetries {
		rw.Write([]byte{CAN, CAN})
		return
	}
	rw.Write([]byte{NAK})
}

func verifyChecksum(data, sum []byte, useCRC bool) bool {
	if useCRC {
		if len(sum) != 2 {
			return false
		}
		crc := crc16xmodem(data)
		return sum[0] == byte(crc>>8) && sum[1] == byte(crc)
	}
	if len(sum) != 1 {
		return false
	}
	return sum[0] == checksum8(data)
}

// trimPadding strips the 0x1A padding bytes added to fill the last
// block. Safe to run before slicing off the trailing hex digest since
// a lowercase hex digit is never 0x1A.
func trimPadding(data []byte) []byte {
	end := len(data)
	for end > 0 && data[end-1] == padByte {
		end--
	}
	return data[:end]
}
