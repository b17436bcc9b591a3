package group

import "sync"

// rendezvous holds the channel matrix shared by every rank's view of one
// communicator. Each directed pair (sender, receiver) gets its own
// unbuffered channel, so a collective round is deadlock-free without an
// explicit barrier: a sender blocks until the matching receiver is ready,
// and because every rank drains all of its receives before returning from
// AllToAllW, a second round cannot race ahead of the first.
//
// This generalizes a point-to-point send/recv rendezvous to the full
// size x size pairing a flat all-to-all needs.
type rendezvous struct {
	size     int
	channels [][]chan []byte
}

func newRendezvous(size int) *rendezvous {
	channels := make([][]chan []byte, size)
	for i := range channels {
		channels[i] = make([]chan []byte, size)
		for j := range channels[i] {
			channels[i][j] = make(chan []byte)
		}
	}
	return &rendezvous{size: size, channels: channels}
}

// exchange performs one rank's side of the all-to-all: sendBufs[j] is
// delivered to peer j, and the result's [j] entry is whatever peer j sent
// to this rank.
func (rv *rendezvous) exchange(localRank int, sendBufs [][]byte) ([][]byte, error) {
	var wg sync.WaitGroup
	for j := range rv.size {
		if j == localRank {
			continue
		}
		wg.Add(1)
		go func(j int) {
			defer wg.Done()
			rv.channels[localRank][j] <- sendBufs[j]
		}(j)
	}

	recvBufs := make([][]byte, rv.size)
	recvBufs[localRank] = sendBufs[localRank]
	for j := range rv.size {
		if j == localRank {
			continue
		}
		recvBufs[j] = <-rv.channels[j][localRank]
	}
	wg.Wait()
	return recvBufs, nil
}
