package eventbus

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
)

// PublishWithLotteryScope publishes msg on {baseTopic}.{lotteryID} so
// consumers can follow one lottery or all of them:
//   - "lottery.drawn.v1.*" catches every lottery
//   - "lottery.drawn.v1.<id>" catches one lottery
func PublishWithLotteryScope(bus message.Publisher, baseTopic string, lotteryID string, msg *message.Message) error {
	if lotteryID == "" {
		return fmt.Errorf("lotteryID cannot be empty for lottery-scoped publish")
	}
	return bus.Publish(FormatLotteryScopedTopic(baseTopic, lotteryID), msg)
}

// FormatLotteryScopedTopic formats a topic with the lottery id suffix
// without publishing.
func FormatLotteryScopedTopic(baseTopic string, lotteryID string) string {
	return fmt.Sprintf("%s.%s", baseTopic, lotteryID)
}
