package enums

const FILE_BUCKET_CHAT_ATTACHMENTS = "chat-attachments"
