package eventbus

type FormEventType string

const (
	FormEventApproved  FormEventType = "FormApproved"
	FormEventRejected  FormEventType = "FormRejected"
	FormEventCancelled FormEventType = "FormCancelled"
	FormEventFeedback  FormEventType = "FormFeedback"
)

type FormEvent struct {
	Type          FormEventType
	FormID        uint
	SubmitterID   uint
	ReviewerID    uint
	ActorID       uint
	TemplateTitle string
	Comment       string
}

func (e FormEvent) EventType() FormEventType {
	return e.Type
}

type FormEventHandler = Handler[FormEvent]
type FormEventBus = Bus[FormEventType, FormEvent]

func NewFormEventBus() *FormEventBus {
	return NewBus[FormEventType, FormEvent]()
}
