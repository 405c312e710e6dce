package oracle

// OracleDataType is the closed enumeration of logical types this driver
// supports.
type OracleDataType int

const (
	TypeVarchar OracleDataType = iota
	TypeNVarchar
	TypeChar
	TypeNChar
	TypeNumber
	TypeBinaryInteger
	TypeBinaryFloat
	TypeBinaryDouble
	TypeBoolean
	TypeRaw
	TypeLong
	TypeLongRaw
	TypeLongNVarchar
	TypeDate
	TypeTimestamp
	TypeTimestampTZ
	TypeTimestampLTZ
	TypeIntervalDS
	TypeIntervalYM
	TypeBlob
	TypeClob
	TypeNClob
	TypeBFile
	TypeJSON
	TypeVector
	TypeCursor
	TypeRowid
	TypeURowid
	TypeObject
	TypeUnknown
)

// CharsetForm distinguishes the three character-set-form values a
// column or bind carries.
type CharsetForm uint8

const (
	CharsetFormNone    CharsetForm = 0
	CharsetFormImplicit CharsetForm = 1
	CharsetFormNChar   CharsetForm = 2
)

// typeDescriptor is the fixed metadata attached to every OracleDataType:
// its on-wire type number, csfrm, default size, and the per-element
// buffer-size multiplier used when sizing Variable buffers.
type typeDescriptor struct {
	TypeNumber   uint16
	CharsetForm  CharsetForm
	DefaultSize  uint32
	BufferFactor uint32
}

var typeDescriptors = map[OracleDataType]typeDescriptor{
	TypeVarchar:       {TypeNumber: 1, CharsetForm: CharsetFormImplicit, DefaultSize: 4000, BufferFactor: 1},
	TypeNVarchar:      {TypeNumber: 1, CharsetForm: CharsetFormNChar, DefaultSize: 4000, BufferFactor: 2},
	TypeChar:          {TypeNumber: 96, CharsetForm: CharsetFormImplicit, DefaultSize: 2000, BufferFactor: 1},
	TypeNChar:         {TypeNumber: 96, CharsetForm: CharsetFormNChar, DefaultSize: 2000, BufferFactor: 2},
	TypeNumber:        {TypeNumber: 2, CharsetForm: CharsetFormNone, DefaultSize: 22, BufferFactor: 1},
	TypeBinaryInteger: {TypeNumber: 3, CharsetForm: CharsetFormNone, DefaultSize: 4, BufferFactor: 1},
	TypeBinaryFloat:   {TypeNumber: 100, CharsetForm: CharsetFormNone, DefaultSize: 4, BufferFactor: 1},
	TypeBinaryDouble:  {TypeNumber: 101, CharsetForm: CharsetFormNone, DefaultSize: 8, BufferFactor: 1},
	TypeBoolean:       {TypeNumber: 252, CharsetForm: CharsetFormNone, DefaultSize: 1, BufferFactor: 1},
	TypeRaw:           {TypeNumber: 23, CharsetForm: CharsetFormNone, DefaultSize: 2000, BufferFactor: 1},
	TypeLong:          {TypeNumber: 8, CharsetForm: CharsetFormImplicit, DefaultSize: 0x7FFFFFFF, BufferFactor: 1},
	TypeLongRaw:       {TypeNumber: 24, CharsetForm: CharsetFormNone, DefaultSize: 0x7FFFFFFF, BufferFactor: 1},
	TypeLongNVarchar:  {TypeNumber: 8, CharsetForm: CharsetFormNChar, DefaultSize: 0x7FFFFFFF, BufferFactor: 2},
	TypeDate:          {TypeNumber: 12, CharsetForm: CharsetFormNone, DefaultSize: 7, BufferFactor: 1},
	TypeTimestamp:     {TypeNumber: 180, CharsetForm: CharsetFormNone, DefaultSize: 11, BufferFactor: 1},
	TypeTimestampTZ:   {TypeNumber: 181, CharsetForm: CharsetFormNone, DefaultSize: 13, BufferFactor: 1},
	TypeTimestampLTZ:  {TypeNumber: 231, CharsetForm: CharsetFormNone, DefaultSize: 11, BufferFactor: 1},
	TypeIntervalDS:    {TypeNumber: 183, CharsetForm: CharsetFormNone, DefaultSize: 11, BufferFactor: 1},
	TypeIntervalYM:    {TypeNumber: 182, CharsetForm: CharsetFormNone, DefaultSize: 5, BufferFactor: 1},
	TypeBlob:          {TypeNumber: 113, CharsetForm: CharsetFormNone, DefaultSize: 4000, BufferFactor: 1},
	TypeClob:          {TypeNumber: 112, CharsetForm: CharsetFormImplicit, DefaultSize: 4000, BufferFactor: 1},
	TypeNClob:         {TypeNumber: 112, CharsetForm: CharsetFormNChar, DefaultSize: 4000, BufferFactor: 2},
	TypeBFile:         {TypeNumber: 114, CharsetForm: CharsetFormNone, DefaultSize: 530, BufferFactor: 1},
	TypeJSON:          {TypeNumber: 119, CharsetForm: CharsetFormNone, DefaultSize: 4000, BufferFactor: 1},
	TypeVector:        {TypeNumber: 127, CharsetForm: CharsetFormNone, DefaultSize: 4000, BufferFactor: 1},
	TypeCursor:        {TypeNumber: 102, CharsetForm: CharsetFormNone, DefaultSize: 0, BufferFactor: 1},
	TypeRowid:         {TypeNumber: 11, CharsetForm: CharsetFormNone, DefaultSize: 18, BufferFactor: 1},
	TypeURowid:        {TypeNumber: 208, CharsetForm: CharsetFormNone, DefaultSize: 4000, BufferFactor: 1},
	TypeObject:        {TypeNumber: 109, CharsetForm: CharsetFormNone, DefaultSize: 0, BufferFactor: 1},
}

// lookupKey packs (type_number, csfrm) into a single lookup key, the
// same pair DESCRIBE_INFO uses to disambiguate column wire types.
func lookupKey(typeNumber uint16, csfrm CharsetForm) int {
	return int(csfrm)*256 + int(typeNumber)
}

var typeByWireKey map[int]OracleDataType

func init() {
	typeByWireKey = make(map[int]OracleDataType, len(typeDescriptors))
	for t, d := range typeDescriptors {
		typeByWireKey[lookupKey(d.TypeNumber, d.CharsetForm)] = t
	}
}

// TypeFromWire resolves the (type_number, csfrm) pair the server sends
// in DESCRIBE_INFO into an OracleDataType, defaulting to TypeUnknown.
func TypeFromWire(typeNumber uint16, csfrm CharsetForm) OracleDataType {
	if t, ok := typeByWireKey[lookupKey(typeNumber, csfrm)]; ok {
		return t
	}
	return TypeUnknown
}

// Descriptor returns the fixed wire metadata for t.
func (t OracleDataType) Descriptor() typeDescriptor {
	return typeDescriptors[t]
}
