package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/rs/zerolog"
)

// SNSの件名は100文字未満
const maxSubjectLen = 99

// SNSAPI は通知に使うSNS操作
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Notifier はスケジューラ全体の失敗を運用者に通知する
type Notifier struct {
	client   SNSAPI
	topicArn string
	log      zerolog.Logger
}

// New は通知先トピックを指定して作成（トピックが空なら通知しない）
func New(client SNSAPI, topicArn string, log zerolog.Logger) *Notifier {
	return &Notifier{client: client, topicArn: topicArn, log: log}
}

// Enabled は通知先が設定されているか
func (n *Notifier) Enabled() bool {
	return n != nil && n.client != nil && n.topicArn != ""
}

// Notify はトピックにメッセージを送る
func (n *Notifier) Notify(ctx context.Context, subject, message string) error {
	if !n.Enabled() {
		return nil
	}
	if r := []rune(subject); len(r) > maxSubjectLen {
		subject = string(r[:maxSubjectLen])
	}

	out, err := n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicArn),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	})
	if err != nil {
		return fmt.Errorf("通知の送信に失敗: %w", err)
	}
	n.log.Info().Str("message_id", aws.ToString(out.MessageId)).Msg("📣 通知を送信しました")
	return nil
}
