// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

package graphql

import "github.com/dumtruck/konobangu/internal/domain"

type subscriberResolver struct{ s *domain.Subscriber }

func (r *subscriberResolver) ID() int32          { return int32(r.s.ID) }
func (r *subscriberResolver) Pid() string        { return r.s.PID }
func (r *subscriberResolver) DisplayName() string { return r.s.DisplayName }

type subscriptionResolver struct{ s *domain.Subscription }

func (r *subscriptionResolver) ID() int32           { return int32(r.s.ID) }
func (r *subscriptionResolver) SubscriberID() int32 { return int32(r.s.SubscriberID) }
func (r *subscriptionResolver) Category() string    { return string(r.s.Category) }
func (r *subscriptionResolver) DisplayName() string { return r.s.DisplayName }
func (r *subscriptionResolver) SourceURL() string   { return r.s.SourceURL }
func (r *subscriptionResolver) Enabled() bool       { return r.s.Enabled }
func (r *subscriptionResolver) CredentialID() *int32 {
	return intPtrToInt32Ptr(r.s.CredentialID)
}

type bangumiResolver struct{ b *domain.Bangumi }

func (r *bangumiResolver) ID() int32             { return int32(r.b.ID) }
func (r *bangumiResolver) SubscriberID() int32   { return int32(r.b.SubscriberID) }
func (r *bangumiResolver) MikanBangumiID() *string { return r.b.MikanBangumiID }
func (r *bangumiResolver) MikanFansubID() *string  { return r.b.MikanFansubID }
func (r *bangumiResolver) DisplayName() string   { return r.b.DisplayName }
func (r *bangumiResolver) RawName() string       { return r.b.RawName }
func (r *bangumiResolver) Season() int32         { return int32(r.b.Season) }
func (r *bangumiResolver) Fansub() *string        { return r.b.Fansub }
func (r *bangumiResolver) RSSLink() *string       { return r.b.RSSLink }
func (r *bangumiResolver) PosterLink() *string    { return r.b.PosterLink }
func (r *bangumiResolver) Homepage() *string      { return r.b.Homepage }

type episodeResolver struct{ e *domain.Episode }

func (r *episodeResolver) ID() int32           { return int32(r.e.ID) }
func (r *episodeResolver) SubscriberID() int32 { return int32(r.e.SubscriberID) }
func (r *episodeResolver) BangumiID() int32    { return int32(r.e.BangumiID) }
func (r *episodeResolver) DisplayName() string { return r.e.DisplayName }
func (r *episodeResolver) RawName() string     { return r.e.RawName }
func (r *episodeResolver) Season() int32       { return int32(r.e.Season) }
func (r *episodeResolver) EpisodeIndex() int32 { return int32(r.e.EpisodeIndex) }
func (r *episodeResolver) Resolution() *string { return r.e.Resolution }
func (r *episodeResolver) Fansub() *string      { return r.e.Fansub }
func (r *episodeResolver) Source() *string      { return r.e.Source }
func (r *episodeResolver) Homepage() *string    { return r.e.Homepage }
func (r *episodeResolver) EnclosureMagnetLink() *string  { return r.e.EnclosureMagnetLink }
func (r *episodeResolver) EnclosureTorrentLink() *string { return r.e.EnclosureTorrentLink }

type credentialResolver struct{ c *domain.Credential3rd }

func (r *credentialResolver) ID() int32             { return int32(r.c.ID) }
func (r *credentialResolver) SubscriberID() int32   { return int32(r.c.SubscriberID) }
func (r *credentialResolver) CredentialType() string { return string(r.c.CredentialType) }
func (r *credentialResolver) UserAgent() *string     { return r.c.UserAgent }

type taskResolver struct{ t *domain.Task }

func taskResolvers(rows []*domain.Task) []*taskResolver {
	out := make([]*taskResolver, len(rows))
	for i, row := range rows {
		out[i] = &taskResolver{t: row}
	}
	return out
}

func (r *taskResolver) ID() string          { return r.t.ID }
func (r *taskResolver) JobType() string     { return string(r.t.JobType) }
func (r *taskResolver) Status() string      { return string(r.t.Status) }
func (r *taskResolver) Attempts() int32     { return int32(r.t.Attempts) }
func (r *taskResolver) MaxAttempts() int32  { return int32(r.t.MaxAttempts) }
func (r *taskResolver) LastError() *string  { return r.t.LastError }
func (r *taskResolver) SubscriberID() *int32 { return intPtrToInt32Ptr(r.t.SubscriberID) }
func (r *taskResolver) SubscriptionID() *int32 {
	return intPtrToInt32Ptr(r.t.SubscriptionID)
}
func (r *taskResolver) TaskType() *string { return r.t.TaskType }

type cronResolver struct{ c *domain.Cron }

func (r *cronResolver) ID() int32         { return int32(r.c.ID) }
func (r *cronResolver) CronSource() string { return string(r.c.CronSource) }
func (r *cronResolver) CronExpr() string  { return r.c.CronExpr }
func (r *cronResolver) Enabled() bool     { return r.c.Enabled }
func (r *cronResolver) Status() string    { return string(r.c.Status) }
func (r *cronResolver) Attempts() int32   { return int32(r.c.Attempts) }
func (r *cronResolver) MaxAttempts() int32 { return int32(r.c.MaxAttempts) }

func intPtrToInt32Ptr(v *int) *int32 {
	if v == nil {
		return nil
	}
	out := int32(*v)
	return &out
}
