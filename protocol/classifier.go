package protocol

import (
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/hxri-nxrxyxn/eyetap/domain"
)

func Classify(frameType int, data []byte) (domain.Message, error) {
	switch frameType {
	case websocket.BinaryMessage:
		return domain.BinaryMessage(data), nil
	case websocket.TextMessage:
		return domain.Message{Kind: domain.Text, Data: data}, nil
	default:
		return domain.Message{}, fmt.Errorf("%w: %d", domain.ErrUnknownFrame, frameType)
	}
}
