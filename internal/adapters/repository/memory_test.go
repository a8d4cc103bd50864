package repository_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/loanoffer/internal/adapters/repository"
	"github.com/okian/loanoffer/internal/domain/model"
)

func TestMemoryProfiles(t *testing.T) {
	Convey("Given a memory store seeded with the sample profiles", t, func() {
		store := repository.NewMemoryStore(repository.WithProfiles(repository.SampleProfiles()...))
		ctx := context.Background()

		Convey("Then every sample can be fetched", func() {
			for _, p := range repository.SampleProfiles() {
				got, err := store.GetProfile(ctx, p.ApplicantID)
				So(err, ShouldBeNil)
				So(got.ApplicantID, ShouldEqual, p.ApplicantID)
			}
		})

		Convey("Then unknown applicants are not found", func() {
			_, err := store.GetProfile(ctx, "ghost")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

			_, err = repository.NewProfileFetcher(store).FetchApplicantProfile(ctx, "ghost")
			So(errors.Is(err, model.ErrApplicantNotFound), ShouldBeTrue)
		})

		Convey("Then returned profiles are copies", func() {
			got, err := store.GetProfile(ctx, "app-prime")
			So(err, ShouldBeNil)
			got.City = model.CityOther
			again, _ := store.GetProfile(ctx, "app-prime")
			So(again.City, ShouldEqual, model.CityTier1)
		})

		Convey("When a profile is replaced", func() {
			So(store.PutProfile(ctx, &model.ApplicantProfile{ApplicantID: "app-prime", Age: model.Int(60)}), ShouldBeNil)
			got, err := store.GetProfile(ctx, "app-prime")
			So(err, ShouldBeNil)
			So(*got.Age, ShouldEqual, 60)
			So(got.CreditScore, ShouldBeNil)
		})

		Convey("When a profile without an id is stored", func() {
			err := store.PutProfile(ctx, &model.ApplicantProfile{})
			So(errors.Is(err, repository.ErrInvalidRecord), ShouldBeTrue)
		})

		Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := store.GetProfile(cctx, "app-prime")
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}

func TestMemoryOffers(t *testing.T) {
	Convey("Given an empty memory store", t, func() {
		store := repository.NewMemoryStore()
		ctx := context.Background()

		Convey("When records are saved", func() {
			So(store.SaveOffer(ctx, sampleRecord("req-1")), ShouldBeNil)
			So(store.SaveOffer(ctx, sampleRecord("req-2")), ShouldBeNil)

			Convey("Then they can be loaded and counted", func() {
				rec, err := store.GetOffer(ctx, "req-1")
				So(err, ShouldBeNil)
				So(rec.ApplicantID, ShouldEqual, "app-1")
				So(store.Count(ctx), ShouldEqual, 2)
			})

			Convey("Then listing returns newest first", func() {
				recs, err := store.ListByApplicant(ctx, "app-1", 10)
				So(err, ShouldBeNil)
				So(len(recs), ShouldEqual, 2)
				So(recs[0].RequestID, ShouldEqual, "req-2")
				So(recs[1].RequestID, ShouldEqual, "req-1")

				recs, err = store.ListByApplicant(ctx, "app-1", 1)
				So(err, ShouldBeNil)
				So(len(recs), ShouldEqual, 1)
			})

			Convey("Then saving the same request id again fails", func() {
				err := store.SaveOffer(ctx, sampleRecord("req-1"))
				So(errors.Is(err, repository.ErrDuplicate), ShouldBeTrue)
			})
		})

		Convey("Then unknown records are not found", func() {
			_, err := store.GetOffer(ctx, "nope")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

			recs, err := store.ListByApplicant(ctx, "nobody", 3)
			So(err, ShouldBeNil)
			So(len(recs), ShouldEqual, 0)
		})

		Convey("Then a non-positive limit is rejected", func() {
			_, err := store.ListByApplicant(ctx, "app-1", -1)
			So(errors.Is(err, repository.ErrInvalidLimit), ShouldBeTrue)
		})
	})

	Convey("Given a store bounded to two records", t, func() {
		store := repository.NewMemoryStore(repository.WithMaxOffers(2))
		ctx := context.Background()
		for i := 1; i <= 3; i++ {
			So(store.SaveOffer(ctx, sampleRecord(fmt.Sprintf("req-%d", i))), ShouldBeNil)
		}

		Convey("Then the oldest record is evicted", func() {
			So(store.Count(ctx), ShouldEqual, 2)
			_, err := store.GetOffer(ctx, "req-1")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

			recs, err := store.ListByApplicant(ctx, "app-1", 10)
			So(err, ShouldBeNil)
			So(len(recs), ShouldEqual, 2)
			So(recs[0].RequestID, ShouldEqual, "req-3")
		})
	})

	Convey("Given concurrent writers", t, func() {
		store := repository.NewMemoryStore()
		ctx := context.Background()
		var wg sync.WaitGroup
		for i := range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = store.SaveOffer(ctx, sampleRecord(fmt.Sprintf("req-%d", i)))
			}()
		}
		wg.Wait()

		So(store.Count(ctx), ShouldEqual, 50)
	})
}
