package domain

const (
	EventNameRoomLeaderboardUpdated = "room.leaderboard.updated"
	EventNameRoomCompleted          = "room.completed"
	// EventNameRoomLeaderboardBroadcast is the throttled realtime view
	// derived from room.leaderboard.updated.
	EventNameRoomLeaderboardBroadcast = "room.leaderboard.broadcast"
)

type EventRoomLeaderboardUpdated struct {
	Leaderboard RoomLeaderboard
}

func (EventRoomLeaderboardUpdated) Name() string { return EventNameRoomLeaderboardUpdated }

type EventRoomCompleted struct {
	Room Room
}

func (EventRoomCompleted) Name() string { return EventNameRoomCompleted }

type EventRoomLeaderboardBroadcast struct {
	Leaderboard RoomLeaderboard
}

func (EventRoomLeaderboardBroadcast) Name() string { return EventNameRoomLeaderboardBroadcast }
